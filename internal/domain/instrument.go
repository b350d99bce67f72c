package domain

import "sync"

// Instrument is a tradable symbol with a mutable reference price.
// The reference price follows a last-trade-price model: it is updated
// only when a trade executes on the instrument, and is always > 0.
type Instrument struct {
	Symbol string

	mu       sync.RWMutex
	refPrice int64 // cents
}

// NewInstrument creates an instrument with the given initial reference price.
func NewInstrument(symbol string, refPrice int64) *Instrument {
	return &Instrument{Symbol: symbol, refPrice: refPrice}
}

// ReferencePrice returns the instrument's current reference price in cents.
// Safe for concurrent use.
func (i *Instrument) ReferencePrice() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.refPrice
}

// SetReferencePrice updates the reference price. Only the matching engine
// calls this, after a completed trade. Non-positive prices are ignored so
// the invariant refPrice > 0 can never break.
func (i *Instrument) SetReferencePrice(p int64) {
	if p <= 0 {
		return
	}
	i.mu.Lock()
	i.refPrice = p
	i.mu.Unlock()
}

// InstrumentRegistry is a thread-safe catalog of tradable instruments.
// The symbol set is fixed after startup; only reference prices change.
type InstrumentRegistry struct {
	mu          sync.RWMutex
	instruments map[string]*Instrument
	symbols     []string // registration order, for deterministic iteration
}

// NewInstrumentRegistry creates an empty InstrumentRegistry.
func NewInstrumentRegistry() *InstrumentRegistry {
	return &InstrumentRegistry{
		instruments: make(map[string]*Instrument),
	}
}

// Register adds an instrument with the given initial reference price.
// It returns ErrInvalidOrder if refPrice <= 0, and is a no-op if the
// symbol is already registered.
func (r *InstrumentRegistry) Register(symbol string, refPrice int64) error {
	if refPrice <= 0 {
		return ErrInvalidOrder
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instruments[symbol]; ok {
		return nil
	}
	r.instruments[symbol] = NewInstrument(symbol, refPrice)
	r.symbols = append(r.symbols, symbol)
	return nil
}

// Get retrieves an instrument by symbol. It returns ErrInstrumentNotFound
// if the symbol is not registered.
func (r *InstrumentRegistry) Get(symbol string) (*Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instruments[symbol]
	if !ok {
		return nil, ErrInstrumentNotFound
	}
	return inst, nil
}

// Symbols returns all registered symbols in registration order.
func (r *InstrumentRegistry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}
