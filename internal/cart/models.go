package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Coupon discount types.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Product is the catalog snapshot embedded in a cart line at the time the
// line was created. Prices are server-authoritative.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    string          `json:"image_url,omitempty"`
	CategoryIDs []string        `json:"category_ids,omitempty"`
}

// Variant is a selected product variant. Two lines with the same product but
// different variants are distinct lines.
type Variant struct {
	Name  string          `json:"name"`
	Value string          `json:"value"`
	Price decimal.Decimal `json:"price"`
}

// Equal reports structural equality of two variant descriptors. A nil
// receiver equals only another nil variant.
func (v *Variant) Equal(other *Variant) bool {
	if v == nil || other == nil {
		return v == nil && other == nil
	}
	return v.Name == other.Name && v.Value == other.Value && v.Price.Equal(other.Price)
}

// CartItem is one line of a cart: a product snapshot, optional variant,
// quantity and the unit price actually charged.
type CartItem struct {
	ID       string          `json:"_id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Variant  *Variant        `json:"variant,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// Matches reports whether the line matches the given product and variant.
// A nil variant acts as a wildcard; a non-nil variant requires deep equality.
func (it CartItem) Matches(productID string, variant *Variant) bool {
	if it.Product.ID != productID {
		return false
	}
	if variant == nil {
		return true
	}
	return variant.Equal(it.Variant)
}

// Coupon is a discount code. All validation is performed server-side; the
// client only carries the applied coupon inside the cart snapshot.
type Coupon struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	UsageLimit    int              `json:"usage_limit,omitempty"`
	PerUserLimit  int              `json:"per_user_limit,omitempty"`
	ValidFrom     time.Time        `json:"valid_from"`
	ExpiresAt     time.Time        `json:"expires_at"`
	CategoryIDs   []string         `json:"category_ids,omitempty"`
}

// Cart is the server-authoritative cart aggregate. Monetary fields are
// computed by the server and only displayed client-side; the invariant
// total = subtotal + shipping + tax - discount holds on every snapshot.
type Cart struct {
	ID       string          `json:"_id"`
	UserID   string          `json:"user_id,omitempty"`
	GuestID  string          `json:"guest_id,omitempty"`
	Items    []CartItem      `json:"items"`
	Coupon   *Coupon         `json:"coupon,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ItemCount is the sum of quantities over all lines.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, it := range c.Items {
		count += it.Quantity
	}
	return count
}

// Item returns the first line matching the product and variant.
func (c *Cart) Item(productID string, variant *Variant) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, it := range c.Items {
		if it.Matches(productID, variant) {
			return it, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it
		if it.Variant != nil {
			v := *it.Variant
			out.Items[i].Variant = &v
		}
	}
	if c.Coupon != nil {
		cp := *c.Coupon
		if cp.MaxDiscount != nil {
			d := *cp.MaxDiscount
			cp.MaxDiscount = &d
		}
		if cp.MinOrderValue != nil {
			d := *cp.MinOrderValue
			cp.MinOrderValue = &d
		}
		cp.CategoryIDs = append([]string(nil), cp.CategoryIDs...)
		out.Coupon = &cp
	}
	return &out
}

// NormalizeCouponCode trims whitespace and upper-cases a coupon code. Codes
// are case-insensitive; normalization happens once here rather than at each
// entry point.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
