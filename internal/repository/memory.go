package repository

import (
	"context"
	"sync"

	"github.com/kjlinux/pourier-back/internal/domain"
)

// MemoryOrderStore keeps orders in a map with the same version
// semantics as the Dynamo repository. Used by tests and local runs.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]domain.Order)}
}

func (s *MemoryOrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.OrderID]; exists {
		return domain.ErrVersionConflict
	}
	s.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func (s *MemoryOrderStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	out := cloneOrder(&stored)
	return &out, nil
}

func (s *MemoryOrderStore) UpdateOrder(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[order.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	order.Version = expectedVersion + 1
	s.orders[order.OrderID] = cloneOrder(order)
	return nil
}

func cloneOrder(o *domain.Order) domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		out.PaidAt = &paidAt
	}
	return out
}

// MemoryProfileStore mirrors the profile repository for tests.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.PhotographerProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domain.PhotographerProfile)}
}

func (s *MemoryProfileStore) PutProfile(profile domain.PhotographerProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
}

func (s *MemoryProfileStore) GetProfile(ctx context.Context, userID string) (*domain.PhotographerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	out := stored
	return &out, nil
}

func (s *MemoryProfileStore) UpdateProfile(ctx context.Context, profile *domain.PhotographerProfile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[profile.UserID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	profile.Version = expectedVersion + 1
	s.profiles[profile.UserID] = *profile
	return nil
}
