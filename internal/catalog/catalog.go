// Package catalog provides read access to products, coupons and categories
// for the cart service.
package catalog

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/category"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
)

// Provider is the catalog contract consumed by the cart service. Coupon
// lookups take a normalized (upper-case) code.
type Provider interface {
	Product(ctx context.Context, id string) (*cart.Product, error)
	Coupon(ctx context.Context, code string) (*cart.Coupon, error)
	Products(ctx context.Context) ([]cart.Product, error)
	Categories(ctx context.Context) ([]category.Category, error)
}
