package notification

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/cart"
)

// Cart lifecycle event types published to the notification topic.
const (
	EventCartUpdated   = "CartUpdated"
	EventCartCleared   = "CartCleared"
	EventCouponApplied = "CouponApplied"
	EventCouponRemoved = "CouponRemoved"
)

// CartEvent is the notification payload for a cart change. It carries a
// display summary, not the full cart; consumers re-fetch if they need more.
type CartEvent struct {
	EventType  string          `json:"event_type"`
	Owner      string          `json:"owner"`
	CartID     string          `json:"cart_id,omitempty"`
	ItemCount  int             `json:"item_count"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"coupon_code,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewCartEvent builds an event summarizing the cart after a change. A nil
// cart (post-clear) yields a zero summary.
func NewCartEvent(eventType, owner string, c *cart.Cart) CartEvent {
	ev := CartEvent{
		EventType:  eventType,
		Owner:      owner,
		OccurredAt: time.Now(),
	}
	if c != nil {
		ev.CartID = c.ID
		ev.ItemCount = c.ItemCount()
		ev.Total = c.Total
		if c.Coupon != nil {
			ev.CouponCode = c.Coupon.Code
		}
	}
	return ev
}
