package server

import (
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/cart"
)

// PricingConfig holds the rates the cart service prices with.
type PricingConfig struct {
	TaxRate          decimal.Decimal // e.g. 0.08 for 8%
	ShippingFlatRate decimal.Decimal
	FreeShippingOver decimal.Decimal
}

// DefaultPricing mirrors the storefront's launch configuration.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		TaxRate:          decimal.NewFromFloat(0.08),
		ShippingFlatRate: decimal.NewFromInt(10),
		FreeShippingOver: decimal.NewFromInt(100),
	}
}

// Reprice recomputes every monetary field of the cart in place, keeping the
// invariant total = subtotal + shipping + tax - discount. An invalid coupon
// (expired, below minimum after a quantity change, ...) is dropped rather
// than priced.
func (p PricingConfig) Reprice(c *cart.Cart) {
	subtotal := decimal.Zero
	for _, it := range c.Items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	c.Subtotal = subtotal

	c.Discount = decimal.Zero
	if c.Coupon != nil {
		if ValidateCoupon(c.Coupon, c.Items) != nil {
			c.Coupon = nil
		} else {
			c.Discount = CouponDiscount(c.Coupon, c.Items)
		}
	}

	if len(c.Items) == 0 {
		c.Shipping = decimal.Zero
	} else if subtotal.GreaterThanOrEqual(p.FreeShippingOver) {
		c.Shipping = decimal.Zero
	} else {
		c.Shipping = p.ShippingFlatRate
	}

	c.Tax = subtotal.Mul(p.TaxRate).Round(2)
	c.Total = c.Subtotal.Add(c.Shipping).Add(c.Tax).Sub(c.Discount)
}
