package store

import (
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// TraderStore is a thread-safe in-memory store for traders,
// keyed by trader_id.
type TraderStore struct {
	mu      sync.RWMutex
	traders map[string]*domain.Trader
	ids     []string // insertion order, for deterministic iteration
}

// NewTraderStore creates an empty TraderStore.
func NewTraderStore() *TraderStore {
	return &TraderStore{
		traders: make(map[string]*domain.Trader),
	}
}

// Create adds a trader to the store. It returns
// domain.ErrTraderAlreadyExists if a trader with the same ID
// already exists.
func (s *TraderStore) Create(t *domain.Trader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.traders[t.TraderID]; exists {
		return domain.ErrTraderAlreadyExists
	}
	s.traders[t.TraderID] = t
	s.ids = append(s.ids, t.TraderID)
	return nil
}

// Get retrieves a trader by ID. It returns
// domain.ErrTraderNotFound if the trader does not exist.
func (s *TraderStore) Get(id string) (*domain.Trader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.traders[id]
	if !ok {
		return nil, domain.ErrTraderNotFound
	}
	return t, nil
}

// IDs returns all trader IDs in insertion order.
func (s *TraderStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
