package notification

import (
	"context"
	"encoding/json"
	"log"
)

// Handler turns cart events into user-facing notifications. The delivery
// channel (the storefront's live notification socket) sits behind the
// gateway; this process logs what it would push.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// HandleEvent processes one event from the notification topic.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event CartEvent
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case EventCartUpdated:
		log.Printf("[Notifier] Cart %s updated for %s: %d items, total %s",
			event.CartID, event.Owner, event.ItemCount, event.Total)
	case EventCartCleared:
		log.Printf("[Notifier] Cart cleared for %s", event.Owner)
	case EventCouponApplied:
		log.Printf("[Notifier] Coupon %s applied for %s, total %s",
			event.CouponCode, event.Owner, event.Total)
	case EventCouponRemoved:
		log.Printf("[Notifier] Coupon removed for %s, total %s",
			event.Owner, event.Total)
	default:
		log.Printf("[Notifier] Ignoring event type %s", event.EventType)
	}

	return nil
}
