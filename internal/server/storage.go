package server

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/cart"
)

// CartStorage persists one cart per owner. Load returns (nil, nil) when the
// owner has no cart.
type CartStorage interface {
	Load(ctx context.Context, owner string) (*cart.Cart, error)
	Save(ctx context.Context, owner string, c *cart.Cart) error
	Delete(ctx context.Context, owner string) error
}

// MemoryStorage keeps carts in memory. Used in tests and single-node
// development.
type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[string]*cart.Cart
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[string]*cart.Cart)}
}

func (s *MemoryStorage) Load(ctx context.Context, owner string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.carts[owner].Clone(), nil
}

func (s *MemoryStorage) Save(ctx context.Context, owner string, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[owner] = c.Clone()
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}
