package domain

import (
	"sync"
	"time"
)

// TraderState is the lifecycle state of a trader.
type TraderState string

const (
	// TraderStateActive means the trader keeps proposing orders each tick.
	TraderStateActive TraderState = "active"
	// TraderStateDormant means the trader has stopped trading for the
	// rest of the session. There is no transition back to active.
	TraderStateDormant TraderState = "dormant"
)

// Holding represents a trader's position in a single instrument.
type Holding struct {
	Quantity         int64
	ReservedQuantity int64
}

// Trader is a market participant. Cash and holdings are mutated only by
// the matching engine (trade settlement, reservation release) and by the
// funding policy (deposits), always under Mu. Reservations are taken when
// an order is inserted into the book and released on fill or cancel, so
// cash and holdings can never go negative.
type Trader struct {
	TraderID     string
	Cash         int64               // total cash in cents
	ReservedCash int64               // cash locked by resting buy orders
	Holdings     map[string]*Holding // symbol → holding
	State        TraderState
	CreatedAt    time.Time
	Mu           sync.Mutex // per-trader lock for balance mutations
}

// AvailableCash returns the trader's unreserved cash balance.
func (t *Trader) AvailableCash() int64 {
	return t.Cash - t.ReservedCash
}

// AvailableQuantity returns the unreserved quantity for the given symbol,
// or 0 if the trader has no holding in that symbol.
func (t *Trader) AvailableQuantity(symbol string) int64 {
	h, ok := t.Holdings[symbol]
	if !ok {
		return 0
	}
	return h.Quantity - h.ReservedQuantity
}

// Holding returns the holding for symbol, creating an empty one if needed.
// The caller must hold Mu.
func (t *Trader) Holding(symbol string) *Holding {
	h, ok := t.Holdings[symbol]
	if !ok {
		h = &Holding{}
		t.Holdings[symbol] = h
	}
	return h
}
