package session

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/scoopstand/api/internal/service"
)

// MemoryStore keeps sessions in process memory. Sessions never expire.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]service.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[uuid.UUID]service.Order)}
}

func (s *MemoryStore) Create(_ context.Context, order service.Order) (uuid.UUID, error) {
	id := uuid.New()
	s.mu.Lock()
	s.orders[id] = cloneOrder(order)
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (service.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return service.Order{}, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) Save(_ context.Context, id uuid.UUID, order service.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	s.orders[id] = cloneOrder(order)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

// cloneOrder copies the flavor slots so callers never share the backing array.
func cloneOrder(o service.Order) service.Order {
	o.Flavors = slices.Clone(o.Flavors)
	return o
}
