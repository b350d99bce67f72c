package service

import (
	"regexp"
	"sort"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/store"
)

var traderIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// RegisterTraderRequest represents the input for trader registration.
type RegisterTraderRequest struct {
	TraderID        string
	InitialCash     int64            // cents
	InitialHoldings map[string]int64 // symbol → quantity
}

// PortfolioHolding is a single position in a portfolio view.
type PortfolioHolding struct {
	Symbol           string
	Quantity         int64
	ReservedQuantity int64
	ReferencePrice   int64
	Value            int64 // quantity × reference price
}

// Portfolio is a point-in-time valuation of a trader's ledger entry.
type Portfolio struct {
	TraderID     string
	State        domain.TraderState
	Cash         int64
	ReservedCash int64
	Holdings     []PortfolioHolding
	TotalValue   int64 // cash + Σ holding values
	SnapshotAt   time.Time
}

// TraderService handles trader registration and portfolio valuation.
type TraderService struct {
	traderStore *store.TraderStore
	instruments *domain.InstrumentRegistry
}

// NewTraderService creates a new TraderService with the given dependencies.
func NewTraderService(traderStore *store.TraderStore, instruments *domain.InstrumentRegistry) *TraderService {
	return &TraderService{
		traderStore: traderStore,
		instruments: instruments,
	}
}

// Register validates the request and creates an active trader.
func (s *TraderService) Register(req RegisterTraderRequest) (*domain.Trader, error) {
	if !traderIDRegex.MatchString(req.TraderID) {
		return nil, &domain.ValidationError{
			Message: "trader_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.InitialCash < 0 {
		return nil, &domain.ValidationError{
			Message: "initial_cash must be >= 0",
		}
	}

	holdings := make(map[string]*domain.Holding, len(req.InitialHoldings))
	for symbol, qty := range req.InitialHoldings {
		if qty < 0 {
			return nil, &domain.ValidationError{
				Message: "initial holding quantities must be >= 0",
			}
		}
		if _, err := s.instruments.Get(symbol); err != nil {
			return nil, err
		}
		holdings[symbol] = &domain.Holding{Quantity: qty}
	}

	trader := &domain.Trader{
		TraderID:  req.TraderID,
		Cash:      req.InitialCash,
		Holdings:  holdings,
		State:     domain.TraderStateActive,
		CreatedAt: time.Now(),
	}
	if err := s.traderStore.Create(trader); err != nil {
		return nil, err
	}
	return trader, nil
}

// Portfolio returns the trader's cash, positions, and total valuation at
// current reference prices. The trader lock is held while reading the
// ledger so no half-settled trade is observable.
func (s *TraderService) Portfolio(traderID string) (*Portfolio, error) {
	trader, err := s.traderStore.Get(traderID)
	if err != nil {
		return nil, err
	}

	trader.Mu.Lock()
	defer trader.Mu.Unlock()

	p := &Portfolio{
		TraderID:     trader.TraderID,
		State:        trader.State,
		Cash:         trader.Cash,
		ReservedCash: trader.ReservedCash,
		Holdings:     make([]PortfolioHolding, 0, len(trader.Holdings)),
		TotalValue:   trader.Cash,
		SnapshotAt:   time.Now(),
	}

	for symbol, h := range trader.Holdings {
		inst, err := s.instruments.Get(symbol)
		if err != nil {
			continue
		}
		ref := inst.ReferencePrice()
		value := h.Quantity * ref
		p.Holdings = append(p.Holdings, PortfolioHolding{
			Symbol:           symbol,
			Quantity:         h.Quantity,
			ReservedQuantity: h.ReservedQuantity,
			ReferencePrice:   ref,
			Value:            value,
		})
		p.TotalValue += value
	}
	sort.Slice(p.Holdings, func(i, j int) bool {
		return p.Holdings[i].Symbol < p.Holdings[j].Symbol
	})

	return p, nil
}
