package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/engine"
	"github.com/efreitasn/marketsim/internal/service"
	"github.com/efreitasn/marketsim/internal/store"
)

// DriverConfig holds the session bounds and lot sizing for a Driver.
type DriverConfig struct {
	TickInterval time.Duration
	TickCount    int
	LotSize      int64
}

// Driver advances the simulation in discrete ticks. Each tick lets every
// active trader propose one order, then runs the matching engine over
// every instrument. The tick is the unit of cancellation granularity:
// Run only checks the context between ticks, and a matching pass always
// runs to its fixed point.
type Driver struct {
	cfg         DriverConfig
	traders     *store.TraderStore
	traderSvc   *service.TraderService
	instruments *domain.InstrumentRegistry
	orders      *service.OrderService
	matcher     *engine.Matcher
	policy      DecisionPolicy
	sink        engine.EventSink
	logger      *slog.Logger

	cashFloor int64 // lot size in whole dollars, as cents
}

// NewDriver creates a Driver with the given dependencies.
func NewDriver(
	cfg DriverConfig,
	traders *store.TraderStore,
	traderSvc *service.TraderService,
	instruments *domain.InstrumentRegistry,
	orders *service.OrderService,
	matcher *engine.Matcher,
	policy DecisionPolicy,
	sink engine.EventSink,
	logger *slog.Logger,
) *Driver {
	return &Driver{
		cfg:         cfg,
		traders:     traders,
		traderSvc:   traderSvc,
		instruments: instruments,
		orders:      orders,
		matcher:     matcher,
		policy:      policy,
		sink:        sink,
		logger:      logger,
		cashFloor:   cfg.LotSize * 100,
	}
}

// Run executes the session: TickCount ticks at TickInterval, then final
// valuation reporting. Cancelling ctx stops the session between ticks
// and returns ctx.Err(); reaching the tick bound is normal termination
// and returns nil.
func (d *Driver) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for tick := 1; tick <= d.cfg.TickCount; tick++ {
		select {
		case <-ctx.Done():
			d.logger.Info("session cancelled", slog.Int("ticks_completed", tick-1))
			return ctx.Err()
		case <-ticker.C:
			d.Tick()
			d.logger.Debug("tick complete", slog.Int("tick", tick))
		}
	}

	d.logger.Info("session complete", slog.Int("ticks", d.cfg.TickCount))
	d.ReportValuations()
	return nil
}

// Tick advances one simulation step: every active trader proposes one
// order for a policy-chosen instrument and side, funding state is
// evaluated once per trader, then every instrument's book is matched.
func (d *Driver) Tick() {
	symbols := d.instruments.Symbols()

	for _, id := range d.traders.IDs() {
		trader, err := d.traders.Get(id)
		if err != nil {
			continue
		}

		trader.Mu.Lock()
		active := trader.State == domain.TraderStateActive
		trader.Mu.Unlock()
		if !active {
			continue
		}

		symbol := d.policy.PickInstrument(symbols)
		side := d.policy.PickSide()
		// Rejections are already published by the order service.
		_, _ = d.orders.ProposeOrder(id, side, symbol)

		d.checkFunding(trader)
	}

	for _, symbol := range symbols {
		if _, err := d.matcher.MatchInstrument(symbol); err != nil {
			d.logger.Error("match failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}

// checkFunding evaluates the trader's funding state machine: when cash
// and every holding are simultaneously below a tradeable lot, the trader
// is either replenished by an exogenous deposit or goes dormant for the
// rest of the session, chosen by the policy coin flip. Dormancy is never
// reversed.
func (d *Driver) checkFunding(trader *domain.Trader) {
	trader.Mu.Lock()

	broke := trader.Cash < d.cashFloor
	if broke {
		for _, h := range trader.Holdings {
			if h.Quantity >= d.cfg.LotSize {
				broke = false
				break
			}
		}
	}
	if !broke {
		trader.Mu.Unlock()
		return
	}

	if d.policy.Replenish() {
		amount := d.policy.DepositAmount()
		trader.Cash += amount
		trader.Mu.Unlock()
		d.publish(domain.Event{
			Type:     domain.EventTraderReplenished,
			TraderID: trader.TraderID,
			Amount:   amount,
			At:       time.Now(),
		})
		return
	}

	trader.State = domain.TraderStateDormant
	trader.Mu.Unlock()
	d.publish(domain.Event{
		Type:     domain.EventTraderDormant,
		TraderID: trader.TraderID,
		At:       time.Now(),
	})
}

// ReportValuations publishes a final portfolio valuation event for every
// trader: cash plus holdings at current reference prices.
func (d *Driver) ReportValuations() {
	for _, id := range d.traders.IDs() {
		p, err := d.traderSvc.Portfolio(id)
		if err != nil {
			continue
		}
		d.publish(domain.Event{
			Type:     domain.EventFinalValuation,
			TraderID: id,
			Amount:   p.TotalValue,
			At:       p.SnapshotAt,
		})
	}
}

func (d *Driver) publish(e domain.Event) {
	if d.sink != nil {
		d.sink.Publish(e)
	}
}

// Setup registers the instrument catalog and the trader population with
// policy-drawn endowments: an initial reference price per instrument,
// and per trader a starting cash balance plus a position in every
// instrument. Trader IDs are trader-1 through trader-N.
func Setup(
	symbols []string,
	traderCount int,
	policy DecisionPolicy,
	instruments *domain.InstrumentRegistry,
	traderSvc *service.TraderService,
) error {
	for _, symbol := range symbols {
		if err := instruments.Register(symbol, policy.InitialReferencePrice()); err != nil {
			return fmt.Errorf("register instrument %s: %w", symbol, err)
		}
	}

	for i := 1; i <= traderCount; i++ {
		holdings := make(map[string]int64, len(symbols))
		for _, symbol := range symbols {
			holdings[symbol] = policy.InitialHoldingQuantity()
		}
		_, err := traderSvc.Register(service.RegisterTraderRequest{
			TraderID:        fmt.Sprintf("trader-%d", i),
			InitialCash:     policy.InitialCash(),
			InitialHoldings: holdings,
		})
		if err != nil {
			return fmt.Errorf("register trader-%d: %w", i, err)
		}
	}
	return nil
}
