package catalog

import (
	"context"
	"sync"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/category"
)

// Memory is an in-memory catalog used in tests and single-node development.
type Memory struct {
	mu         sync.RWMutex
	products   map[string]cart.Product
	coupons    map[string]cart.Coupon
	categories []category.Category
	order      []string
}

func NewMemory() *Memory {
	return &Memory{
		products: make(map[string]cart.Product),
		coupons:  make(map[string]cart.Coupon),
	}
}

func (m *Memory) AddProduct(p cart.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p
}

func (m *Memory) AddCoupon(c cart.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons[cart.NormalizeCouponCode(c.Code)] = c
}

func (m *Memory) AddCategory(c category.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, c)
}

func (m *Memory) Product(ctx context.Context, id string) (*cart.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (m *Memory) Coupon(ctx context.Context, code string) (*cart.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coupons[cart.NormalizeCouponCode(code)]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

func (m *Memory) Products(ctx context.Context) ([]cart.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]cart.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.products[id])
	}
	return out, nil
}

func (m *Memory) Categories(ctx context.Context) ([]category.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]category.Category(nil), m.categories...), nil
}
