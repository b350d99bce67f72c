package sim

import (
	"math/rand/v2"

	"github.com/efreitasn/marketsim/internal/domain"
	"github.com/efreitasn/marketsim/internal/service"
)

// DecisionPolicy supplies every non-deterministic choice the simulation
// makes: instrument and side selection, price quoting, the
// replenish-or-dormant coin flip, deposit sizing, and initial
// endowments. Matching and pricing logic stay deterministic; tests use
// scripted policies, production uses RandomPolicy.
type DecisionPolicy interface {
	service.PricePolicy

	// PickInstrument chooses the instrument a trader acts on this tick.
	PickInstrument(symbols []string) string
	// PickSide chooses buy or sell.
	PickSide() domain.Side
	// Replenish decides whether a broke trader receives funding (true)
	// or goes dormant for the rest of the session (false).
	Replenish() bool
	// DepositAmount returns the size of a funding event in cents.
	DepositAmount() int64
	// InitialReferencePrice seeds an instrument's starting price in cents.
	InitialReferencePrice() int64
	// InitialCash seeds a trader's starting cash in cents.
	InitialCash() int64
	// InitialHoldingQuantity seeds a trader's starting position per instrument.
	InitialHoldingQuantity() int64
}

// RandomPolicyConfig holds the ranges and probabilities RandomPolicy
// draws from. All monetary values are cents.
type RandomPolicyConfig struct {
	ReplenishProbability float64
	DepositMin           int64
	DepositMax           int64
	InitialPriceMin      int64
	InitialPriceMax      int64
	InitialCashMin       int64
	InitialCashMax       int64
	InitialHoldingMin    int64
	InitialHoldingMax    int64
}

// DefaultRandomPolicyConfig returns the stock session parameters:
// deposits of $10k to $30k, initial prices of $100 to $150, initial cash
// of $50k to $500k, initial positions of 10 to 50 units, and a 50/50
// replenish coin flip.
func DefaultRandomPolicyConfig() RandomPolicyConfig {
	return RandomPolicyConfig{
		ReplenishProbability: 0.5,
		DepositMin:           10_000_00,
		DepositMax:           30_000_00,
		InitialPriceMin:      100_00,
		InitialPriceMax:      150_00,
		InitialCashMin:       50_000_00,
		InitialCashMax:       500_000_00,
		InitialHoldingMin:    10,
		InitialHoldingMax:    50,
	}
}

// RandomPolicy implements DecisionPolicy with a seedable PRNG.
// It is used from the driver goroutine only and is not safe for
// concurrent use.
type RandomPolicy struct {
	rng *rand.Rand
	cfg RandomPolicyConfig
}

// NewRandomPolicy creates a RandomPolicy seeded with the given value.
// The same seed reproduces the same session.
func NewRandomPolicy(seed uint64, cfg RandomPolicyConfig) *RandomPolicy {
	return &RandomPolicy{
		rng: rand.New(rand.NewPCG(seed, seed)),
		cfg: cfg,
	}
}

func (p *RandomPolicy) BandUp() bool {
	return p.rng.IntN(2) == 0
}

func (p *RandomPolicy) PickQuote() service.QuotePick {
	return service.QuotePick(p.rng.IntN(3))
}

func (p *RandomPolicy) PickInstrument(symbols []string) string {
	return symbols[p.rng.IntN(len(symbols))]
}

func (p *RandomPolicy) PickSide() domain.Side {
	if p.rng.IntN(2) == 0 {
		return domain.SideBuy
	}
	return domain.SideSell
}

func (p *RandomPolicy) Replenish() bool {
	return p.rng.Float64() < p.cfg.ReplenishProbability
}

func (p *RandomPolicy) DepositAmount() int64 {
	return p.intInRange(p.cfg.DepositMin, p.cfg.DepositMax)
}

func (p *RandomPolicy) InitialReferencePrice() int64 {
	return p.intInRange(p.cfg.InitialPriceMin, p.cfg.InitialPriceMax)
}

func (p *RandomPolicy) InitialCash() int64 {
	return p.intInRange(p.cfg.InitialCashMin, p.cfg.InitialCashMax)
}

func (p *RandomPolicy) InitialHoldingQuantity() int64 {
	return p.intInRange(p.cfg.InitialHoldingMin, p.cfg.InitialHoldingMax)
}

func (p *RandomPolicy) intInRange(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + p.rng.Int64N(max-min+1)
}
