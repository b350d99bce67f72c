package service

import (
	"math"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
)

// QuotePick selects which book-derived price a proposal quotes.
type QuotePick int

const (
	QuoteBestBid QuotePick = iota
	QuoteBestAsk
	QuoteMid
)

// PricePolicy supplies the non-deterministic choices in order pricing,
// so the pricing logic itself stays deterministic and testable.
type PricePolicy interface {
	// BandUp picks the direction of the band perturbation when an
	// instrument's book is empty on both sides.
	BandUp() bool
	// PickQuote picks among best bid, best ask, and midpoint when the
	// book has depth.
	PickQuote() QuotePick
}

// OrderService turns trader intents into validated limit orders.
// It computes a candidate price from current book depth, hands the order
// to the matching engine for admission, and publishes the accept/reject
// outcome to the event stream.
type OrderService struct {
	matcher     *engine.Matcher
	books       *engine.BookManager
	instruments *domain.InstrumentRegistry
	policy      PricePolicy
	sink        engine.EventSink
	lotSize     int64
	bandPct     float64
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	matcher *engine.Matcher,
	books *engine.BookManager,
	instruments *domain.InstrumentRegistry,
	policy PricePolicy,
	sink engine.EventSink,
	lotSize int64,
	bandPct float64,
) *OrderService {
	return &OrderService{
		matcher:     matcher,
		books:       books,
		instruments: instruments,
		policy:      policy,
		sink:        sink,
		lotSize:     lotSize,
		bandPct:     bandPct,
	}
}

// ProposeOrder prices and submits one lot-sized limit order for the
// trader. A buy is rejected with domain.ErrInsufficientFunds when the
// trader's available cash can't cover price × lot; a sell with
// domain.ErrInsufficientInventory when the available holding is below a
// lot. Both outcomes are published; rejections leave the book untouched.
func (s *OrderService) ProposeOrder(traderID string, side domain.Side, symbol string) (*domain.Order, error) {
	inst, err := s.instruments.Get(symbol)
	if err != nil {
		return nil, err
	}

	price := s.candidatePrice(inst)
	order := &domain.Order{
		TraderID: traderID,
		Side:     side,
		Symbol:   symbol,
		Price:    price,
		Quantity: s.lotSize,
	}

	if err := s.matcher.SubmitOrder(order); err != nil {
		s.publish(domain.Event{
			Type:     domain.EventOrderRejected,
			TraderID: traderID,
			Symbol:   symbol,
			Side:     side,
			Price:    price,
			Quantity: s.lotSize,
			Reason:   err.Error(),
		})
		return nil, err
	}

	s.publish(domain.Event{
		Type:     domain.EventOrderAccepted,
		TraderID: traderID,
		Symbol:   symbol,
		Side:     side,
		Price:    price,
		Quantity: s.lotSize,
		At:       order.CreatedAt,
	})
	return order, nil
}

// candidatePrice derives a limit price from current book depth. An empty
// book quotes the reference price perturbed by the configured band, which
// seeds price discovery instead of crossing immediately at the midpoint.
// Otherwise the policy picks among best bid, best ask, and their midpoint,
// with band-around-reference standing in for whichever side is empty.
func (s *OrderService) candidatePrice(inst *domain.Instrument) int64 {
	ref := inst.ReferencePrice()
	book := s.books.GetOrCreate(inst.Symbol)

	book.RLock()
	bid, hasBid := book.BestBid()
	ask, hasAsk := book.BestAsk()
	book.RUnlock()

	if !hasBid && !hasAsk {
		if s.policy.BandUp() {
			return bandPrice(ref, s.bandPct)
		}
		return bandPrice(ref, -s.bandPct)
	}

	bestBid := bandPrice(ref, -s.bandPct)
	if hasBid {
		bestBid = bid.Price
	}
	bestAsk := bandPrice(ref, s.bandPct)
	if hasAsk {
		bestAsk = ask.Price
	}

	switch s.policy.PickQuote() {
	case QuoteBestBid:
		return bestBid
	case QuoteBestAsk:
		return bestAsk
	default:
		return (bestBid + bestAsk) / 2
	}
}

func (s *OrderService) publish(e domain.Event) {
	if s.sink != nil {
		s.sink.Publish(e)
	}
}

// bandPrice returns ref scaled by (1 + pct), rounded to the nearest cent.
func bandPrice(ref int64, pct float64) int64 {
	return int64(math.Round(float64(ref) * (1 + pct)))
}
