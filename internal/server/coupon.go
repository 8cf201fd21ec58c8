package server

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/cart"
)

var (
	ErrCouponNotYetValid   = errors.New("coupon is not yet valid")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrMinOrderNotMet      = errors.New("order does not meet the coupon minimum")
	ErrCouponNotApplicable = errors.New("coupon does not apply to any item in the cart")
)

// eligibleSubtotal is the part of the cart the coupon can discount: the full
// subtotal for unrestricted coupons, otherwise only the lines whose product
// belongs to one of the coupon's categories.
func eligibleSubtotal(coupon *cart.Coupon, items []cart.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if len(coupon.CategoryIDs) > 0 && !inCategories(it.Product, coupon.CategoryIDs) {
			continue
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func inCategories(p cart.Product, categoryIDs []string) bool {
	for _, want := range categoryIDs {
		for _, have := range p.CategoryIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// ValidateCoupon checks the coupon against the cart contents and the clock.
func ValidateCoupon(coupon *cart.Coupon, items []cart.CartItem) error {
	now := time.Now()
	if !coupon.ValidFrom.IsZero() && now.Before(coupon.ValidFrom) {
		return ErrCouponNotYetValid
	}
	if !coupon.ExpiresAt.IsZero() && now.After(coupon.ExpiresAt) {
		return ErrCouponExpired
	}

	eligible := eligibleSubtotal(coupon, items)
	if len(coupon.CategoryIDs) > 0 && eligible.IsZero() {
		return ErrCouponNotApplicable
	}

	if coupon.MinOrderValue != nil {
		subtotal := decimal.Zero
		for _, it := range items {
			subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		if subtotal.LessThan(*coupon.MinOrderValue) {
			return ErrMinOrderNotMet
		}
	}
	return nil
}

// CouponDiscount computes the discount a valid coupon grants. The discount
// never exceeds the eligible subtotal, so the cart total can not go
// negative.
func CouponDiscount(coupon *cart.Coupon, items []cart.CartItem) decimal.Decimal {
	eligible := eligibleSubtotal(coupon, items)

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case cart.DiscountPercentage:
		discount = eligible.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case cart.DiscountFixed:
		discount = coupon.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(eligible) {
		discount = eligible
	}
	return discount
}
