package cart

import "context"

// Ops is a stateless convenience layer over the Store used by UI call
// sites. It pre-checks the local snapshot to provide add-or-increment and
// toggle semantics.
//
// Note on AddOrUpdate vs AddToCart: AddToCart always calls the add endpoint
// and lets the server decide merge-vs-new-line; AddOrUpdate pre-checks
// locally and calls the update endpoint with a summed quantity. The two can
// diverge if the server caps quantity or re-prices on merge. Both entry
// points are kept; confirm the server's merge semantics before relying on
// the client-side summation.
type Ops struct {
	store *Store
}

// NewOps wraps a store.
func NewOps(store *Store) *Ops {
	return &Ops{store: store}
}

// AddOrUpdate adds the product to the cart, incrementing the existing line's
// quantity when one already matches the (product, variant) pair. This is the
// idempotent UI entry point: at most one line per pair.
func (o *Ops) AddOrUpdate(ctx context.Context, product Product, quantity int, variant *Variant) error {
	if quantity == 0 {
		quantity = 1
	}
	if it, ok := o.store.Item(product.ID, variant); ok {
		return o.store.UpdateItemQuantity(ctx, it.ID, it.Quantity+quantity)
	}
	return o.store.AddToCart(ctx, product, quantity, variant)
}

// Increment raises a line's quantity by one.
func (o *Ops) Increment(ctx context.Context, itemID string, currentQuantity int) error {
	return o.store.UpdateItemQuantity(ctx, itemID, currentQuantity+1)
}

// Decrement lowers a line's quantity by one, removing the line outright when
// it is already at one. The store's own <1 guard would resolve this the same
// way; the rule is enforced at both layers.
func (o *Ops) Decrement(ctx context.Context, itemID string, currentQuantity int) error {
	if currentQuantity > 1 {
		return o.store.UpdateItemQuantity(ctx, itemID, currentQuantity-1)
	}
	return o.store.RemoveItem(ctx, itemID)
}

// Toggle removes the matching line if present, otherwise adds one unit.
func (o *Ops) Toggle(ctx context.Context, product Product, variant *Variant) error {
	if it, ok := o.store.Item(product.ID, variant); ok {
		return o.store.RemoveItem(ctx, it.ID)
	}
	return o.store.AddToCart(ctx, product, 1, variant)
}

// ItemQuantity returns the matching line's quantity, or 0.
func (o *Ops) ItemQuantity(productID string, variant *Variant) int {
	it, ok := o.store.Item(productID, variant)
	if !ok {
		return 0
	}
	return it.Quantity
}
