package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// fallbackErrMessage is recorded when the server gives no message.
const fallbackErrMessage = "cart operation failed"

// Store holds the last-known server cart snapshot and mediates every
// mutation through the remote API. The server's response replaces the
// snapshot wholesale; the store never patches items or recomputes totals
// locally. On failure the previous snapshot is left untouched and the error
// message is recorded.
//
// Each mutating call carries a monotonically increasing sequence number.
// A response is discarded if a response with a higher sequence number has
// already been applied, so two rapid mutations resolving out of order can
// not leave the snapshot reflecting the earlier one.
//
// Error contract: every operation returns the error it hit, and also records
// it in state. Callers of AddToCart and ApplyCoupon must branch on the
// returned error (their UI has transient state of its own to unwind); the
// remaining operations are best-effort and callers may read Err() instead.
type Store struct {
	api API

	mu         sync.Mutex
	cart       *Cart
	inflight   int
	lastErr    string
	nextSeq    uint64
	appliedSeq uint64
	subs       map[int]func()
	nextSub    int
}

// NewStore creates a cart store backed by the given remote API. Stores are
// independent; each logical session owns its own instance.
func NewStore(api API) *Store {
	return &Store{api: api, subs: make(map[int]func())}
}

// Cart returns a deep copy of the current snapshot, or nil when no cart has
// been loaded (or the cart was cleared).
func (s *Store) Cart() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Loading reports whether any operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Err returns the message of the most recent failure, or "" after a
// successful operation start.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to be called after every state change. The returned
// function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notifyLocked() []func() {
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return fns
}

// begin marks an operation as started: loading on, error cleared, sequence
// number assigned.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.inflight++
	s.lastErr = ""
	s.nextSeq++
	seq := s.nextSeq
	fns := s.notifyLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return seq
}

// finishCart adopts the server's cart unless a newer response already won.
func (s *Store) finishCart(seq uint64, c *Cart) {
	s.mu.Lock()
	s.inflight--
	if seq > s.appliedSeq {
		s.appliedSeq = seq
		s.cart = c
	}
	fns := s.notifyLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Store) finishErr(seq uint64, err error) {
	msg := err.Error()
	if msg == "" {
		msg = fallbackErrMessage
	}
	s.mu.Lock()
	s.inflight--
	s.lastErr = msg
	fns := s.notifyLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// GetCart fetches the current cart for the active identity and replaces the
// snapshot, even when the server cart is empty.
func (s *Store) GetCart(ctx context.Context) error {
	seq := s.begin()
	c, err := s.api.FetchCart(ctx)
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// AddToCart asks the server to add quantity units of the product, with an
// optional variant. Whether this merges into an existing line is the
// server's decision. Callers must handle the returned error.
func (s *Store) AddToCart(ctx context.Context, product Product, quantity int, variant *Variant) error {
	if quantity == 0 {
		quantity = 1
	}
	seq := s.begin()
	c, err := s.api.AddItem(ctx, AddItemRequest{
		ProductID: product.ID,
		Quantity:  quantity,
		Variant:   variant,
	})
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// UpdateItemQuantity sets a line's quantity. A quantity below 1 never
// reaches the update endpoint: a line can not exist with non-positive
// quantity, so the call is resolved as a removal instead.
func (s *Store) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 1 {
		return s.RemoveItem(ctx, itemID)
	}
	seq := s.begin()
	c, err := s.api.UpdateItem(ctx, itemID, quantity)
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// RemoveItem removes a line by id. Removing an id the server no longer
// knows is a no-op server-side.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	seq := s.begin()
	c, err := s.api.RemoveItem(ctx, itemID)
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// ClearCart empties the cart. On success the snapshot becomes nil.
func (s *Store) ClearCart(ctx context.Context) error {
	seq := s.begin()
	if err := s.api.ClearCart(ctx); err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, nil)
	return nil
}

// ApplyCoupon normalizes the code (trim, upper-case) and applies it. The
// server owns all validity rules; on failure the snapshot is untouched, the
// error is recorded and returned for the caller to surface inline.
func (s *Store) ApplyCoupon(ctx context.Context, code string) error {
	seq := s.begin()
	c, err := s.api.ApplyCoupon(ctx, NormalizeCouponCode(code))
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// RemoveCoupon clears the applied coupon and adopts the coupon-free cart.
func (s *Store) RemoveCoupon(ctx context.Context) error {
	seq := s.begin()
	c, err := s.api.RemoveCoupon(ctx)
	if err != nil {
		s.finishErr(seq, err)
		return err
	}
	s.finishCart(seq, c)
	return nil
}

// Derived values. All are recomputed from the snapshot on every read and
// are zero when no cart is loaded.

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ItemCount()
}

func (s *Store) SubtotalAmount() decimal.Decimal { return s.amount(func(c *Cart) decimal.Decimal { return c.Subtotal }) }
func (s *Store) DiscountAmount() decimal.Decimal { return s.amount(func(c *Cart) decimal.Decimal { return c.Discount }) }
func (s *Store) ShippingAmount() decimal.Decimal { return s.amount(func(c *Cart) decimal.Decimal { return c.Shipping }) }
func (s *Store) TaxAmount() decimal.Decimal      { return s.amount(func(c *Cart) decimal.Decimal { return c.Tax }) }
func (s *Store) TotalAmount() decimal.Decimal    { return s.amount(func(c *Cart) decimal.Decimal { return c.Total }) }

func (s *Store) amount(field func(*Cart) decimal.Decimal) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return decimal.Zero
	}
	return field(s.cart)
}

// Item returns the line matching the product and variant. A nil variant
// matches any line of the product; a non-nil variant requires deep equality.
func (s *Store) Item(productID string, variant *Variant) (CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Item(productID, variant)
}

// IsInCart reports whether a matching line exists.
func (s *Store) IsInCart(productID string, variant *Variant) bool {
	_, ok := s.Item(productID, variant)
	return ok
}
