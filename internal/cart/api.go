package cart

import "context"

// AddItemRequest is the payload for the add-item call. Quantity and variant
// are passed through verbatim; the server decides whether the request merges
// into an existing line or creates a new one.
type AddItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Variant   *Variant `json:"variant,omitempty"`
}

// API is the remote cart service contract consumed by the Store. Every
// mutation returns the full updated cart; the caller adopts it wholesale.
type API interface {
	FetchCart(ctx context.Context) (*Cart, error)
	AddItem(ctx context.Context, req AddItemRequest) (*Cart, error)
	// UpdateItem requires quantity >= 1; the Store never calls it with less.
	UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*Cart, error)
	ClearCart(ctx context.Context) error
	ApplyCoupon(ctx context.Context, code string) (*Cart, error)
	RemoveCoupon(ctx context.Context) (*Cart, error)
}
