package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updateCall struct {
	ItemID   string
	Quantity int
}

// fakeAPI records every call and serves configurable responses, defaulting
// to an empty cart.
type fakeAPI struct {
	mu sync.Mutex

	FetchCartFn    func(ctx context.Context) (*Cart, error)
	AddItemFn      func(ctx context.Context, req AddItemRequest) (*Cart, error)
	UpdateItemFn   func(ctx context.Context, itemID string, quantity int) (*Cart, error)
	RemoveItemFn   func(ctx context.Context, itemID string) (*Cart, error)
	ClearCartFn    func(ctx context.Context) error
	ApplyCouponFn  func(ctx context.Context, code string) (*Cart, error)
	RemoveCouponFn func(ctx context.Context) (*Cart, error)

	FetchCalls        int
	AddCalls          []AddItemRequest
	UpdateCalls       []updateCall
	RemoveCalls       []string
	ClearCalls        int
	ApplyCouponCalls  []string
	RemoveCouponCalls int
}

func emptyCart() *Cart {
	return &Cart{ID: "cart-1", GuestID: "guest-1", Items: []CartItem{}}
}

func (f *fakeAPI) FetchCart(ctx context.Context) (*Cart, error) {
	f.mu.Lock()
	f.FetchCalls++
	fn := f.FetchCartFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return emptyCart(), nil
}

func (f *fakeAPI) AddItem(ctx context.Context, req AddItemRequest) (*Cart, error) {
	f.mu.Lock()
	f.AddCalls = append(f.AddCalls, req)
	fn := f.AddItemFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return emptyCart(), nil
}

func (f *fakeAPI) UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	f.mu.Lock()
	f.UpdateCalls = append(f.UpdateCalls, updateCall{ItemID: itemID, Quantity: quantity})
	fn := f.UpdateItemFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, itemID, quantity)
	}
	return emptyCart(), nil
}

func (f *fakeAPI) RemoveItem(ctx context.Context, itemID string) (*Cart, error) {
	f.mu.Lock()
	f.RemoveCalls = append(f.RemoveCalls, itemID)
	fn := f.RemoveItemFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, itemID)
	}
	return emptyCart(), nil
}

func (f *fakeAPI) ClearCart(ctx context.Context) error {
	f.mu.Lock()
	f.ClearCalls++
	fn := f.ClearCartFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (f *fakeAPI) ApplyCoupon(ctx context.Context, code string) (*Cart, error) {
	f.mu.Lock()
	f.ApplyCouponCalls = append(f.ApplyCouponCalls, code)
	fn := f.ApplyCouponFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, code)
	}
	return emptyCart(), nil
}

func (f *fakeAPI) RemoveCoupon(ctx context.Context) (*Cart, error) {
	f.mu.Lock()
	f.RemoveCouponCalls++
	fn := f.RemoveCouponFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return emptyCart(), nil
}

func newTestStore() (*Store, *fakeAPI) {
	api := &fakeAPI{}
	return NewStore(api), api
}

func testProduct(id string) Product {
	return Product{ID: id, Name: "Product " + id, Price: decimal.NewFromInt(25)}
}

func cartWithItem(item CartItem) *Cart {
	c := emptyCart()
	c.Items = []CartItem{item}
	c.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	c.Total = c.Subtotal
	return c
}

// seed loads a prepared snapshot into the store through a fetch.
func seed(t *testing.T, s *Store, api *fakeAPI, c *Cart) {
	t.Helper()
	api.mu.Lock()
	api.FetchCartFn = func(ctx context.Context) (*Cart, error) { return c.Clone(), nil }
	api.mu.Unlock()
	require.NoError(t, s.GetCart(context.Background()))
}

// ============================================
// Fetch Tests
// ============================================

func TestStore_GetCart_ReplacesSnapshot(t *testing.T) {
	store, api := newTestStore()

	err := store.GetCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, api.FetchCalls)
	require.NotNil(t, store.Cart())
	assert.Equal(t, "cart-1", store.Cart().ID)
	assert.False(t, store.Loading())
	assert.Empty(t, store.Err())
}

func TestStore_GetCart_FailureLeavesSnapshotIntact(t *testing.T) {
	store, api := newTestStore()
	seed(t, store, api, cartWithItem(CartItem{
		ID: "item-1", Product: testProduct("p1"), Quantity: 2, Price: decimal.NewFromInt(25),
	}))
	before := store.Cart()

	api.FetchCartFn = func(ctx context.Context) (*Cart, error) {
		return nil, errors.New("connection refused")
	}
	err := store.GetCart(context.Background())

	require.Error(t, err)
	assert.Equal(t, "connection refused", store.Err())
	after := store.Cart()
	require.NotNil(t, after)
	assert.Equal(t, before.ID, after.ID)
	assert.Len(t, after.Items, 1)
	assert.Equal(t, 2, after.Items[0].Quantity)
	assert.False(t, store.Loading())
}

func TestStore_SnapshotIsReplacedNotMerged(t *testing.T) {
	store, api := newTestStore()
	first := emptyCart()
	first.Shipping = decimal.NewFromInt(10)
	seed(t, store, api, first)

	// The server returns a cart whose unrelated shipping field differs; the
	// new value must be adopted wholesale.
	second := emptyCart()
	second.Shipping = decimal.NewFromInt(4)
	api.UpdateItemFn = func(ctx context.Context, itemID string, quantity int) (*Cart, error) {
		return second, nil
	}

	require.NoError(t, store.UpdateItemQuantity(context.Background(), "item-1", 3))
	assert.True(t, store.ShippingAmount().Equal(decimal.NewFromInt(4)),
		"expected shipping 4, got %s", store.ShippingAmount())
}

// ============================================
// Quantity Invariant Tests
// ============================================

func TestStore_UpdateItemQuantity_BelowOneBecomesRemove(t *testing.T) {
	for _, quantity := range []int{0, -1, -10} {
		store, api := newTestStore()

		err := store.UpdateItemQuantity(context.Background(), "item-1", quantity)

		require.NoError(t, err)
		assert.Empty(t, api.UpdateCalls, "quantity %d must never reach the update endpoint", quantity)
		assert.Equal(t, []string{"item-1"}, api.RemoveCalls)
	}
}

func TestStore_UpdateItemQuantity_PositiveCallsUpdate(t *testing.T) {
	store, api := newTestStore()

	err := store.UpdateItemQuantity(context.Background(), "item-1", 3)

	require.NoError(t, err)
	assert.Equal(t, []updateCall{{ItemID: "item-1", Quantity: 3}}, api.UpdateCalls)
	assert.Empty(t, api.RemoveCalls)
}

// ============================================
// Add / Clear Tests
// ============================================

func TestStore_AddToCart_PassesThroughVerbatim(t *testing.T) {
	store, api := newTestStore()
	variant := &Variant{Name: "Size", Value: "M", Price: decimal.NewFromInt(27)}

	err := store.AddToCart(context.Background(), testProduct("p1"), 2, variant)

	require.NoError(t, err)
	require.Len(t, api.AddCalls, 1)
	assert.Equal(t, "p1", api.AddCalls[0].ProductID)
	assert.Equal(t, 2, api.AddCalls[0].Quantity)
	assert.True(t, variant.Equal(api.AddCalls[0].Variant))
}

func TestStore_AddToCart_FailureIsReturnedAndRecorded(t *testing.T) {
	store, api := newTestStore()
	api.AddItemFn = func(ctx context.Context, req AddItemRequest) (*Cart, error) {
		return nil, errors.New("product out of stock")
	}

	err := store.AddToCart(context.Background(), testProduct("p1"), 1, nil)

	require.Error(t, err)
	assert.Equal(t, "product out of stock", store.Err())
	assert.Nil(t, store.Cart())
}

func TestStore_ClearCart_SetsSnapshotNil(t *testing.T) {
	store, api := newTestStore()
	seed(t, store, api, cartWithItem(CartItem{
		ID: "item-1", Product: testProduct("p1"), Quantity: 1, Price: decimal.NewFromInt(25),
	}))
	require.NotNil(t, store.Cart())

	require.NoError(t, store.ClearCart(context.Background()))

	assert.Nil(t, store.Cart())
	assert.Equal(t, 1, api.ClearCalls)
	assert.Equal(t, 0, store.ItemCount())
}

// ============================================
// Coupon Tests
// ============================================

func TestStore_ApplyCoupon_NormalizesCode(t *testing.T) {
	store, api := newTestStore()

	err := store.ApplyCoupon(context.Background(), "  summer10 ")

	require.NoError(t, err)
	assert.Equal(t, []string{"SUMMER10"}, api.ApplyCouponCalls)
}

func TestStore_ApplyCoupon_FailureIsReturnedAndRecorded(t *testing.T) {
	store, api := newTestStore()
	api.ApplyCouponFn = func(ctx context.Context, code string) (*Cart, error) {
		return nil, errors.New("coupon has expired")
	}

	err := store.ApplyCoupon(context.Background(), "OLD")

	require.Error(t, err)
	assert.Equal(t, "coupon has expired", store.Err())
}

func TestStore_CouponRoundTrip(t *testing.T) {
	store, api := newTestStore()
	base := cartWithItem(CartItem{
		ID: "item-1", Product: testProduct("p1"), Quantity: 4, Price: decimal.NewFromInt(25),
	})
	seed(t, store, api, base)
	preDiscount := store.DiscountAmount()

	withCoupon := base.Clone()
	withCoupon.Coupon = &Coupon{Code: "SAVE10", DiscountType: DiscountPercentage, DiscountValue: decimal.NewFromInt(10)}
	withCoupon.Discount = decimal.NewFromInt(10)
	withCoupon.Total = withCoupon.Subtotal.Sub(withCoupon.Discount)
	api.ApplyCouponFn = func(ctx context.Context, code string) (*Cart, error) { return withCoupon.Clone(), nil }

	require.NoError(t, store.ApplyCoupon(context.Background(), "save10"))
	require.NotNil(t, store.Cart().Coupon)
	assert.Equal(t, "SAVE10", store.Cart().Coupon.Code)
	assert.True(t, store.DiscountAmount().GreaterThan(decimal.Zero))

	api.RemoveCouponFn = func(ctx context.Context) (*Cart, error) { return base.Clone(), nil }
	require.NoError(t, store.RemoveCoupon(context.Background()))
	assert.Nil(t, store.Cart().Coupon)
	assert.True(t, store.DiscountAmount().Equal(preDiscount))
}

// ============================================
// Query Tests
// ============================================

func TestStore_VariantSensitiveMatching(t *testing.T) {
	store, api := newTestStore()
	variantM := &Variant{Name: "Size", Value: "M", Price: decimal.NewFromInt(27)}
	seed(t, store, api, cartWithItem(CartItem{
		ID: "item-1", Product: testProduct("p1"), Quantity: 2, Variant: variantM, Price: decimal.NewFromInt(27),
	}))

	// No variant acts as a wildcard.
	it, ok := store.Item("p1", nil)
	require.True(t, ok)
	assert.Equal(t, "item-1", it.ID)

	// A different variant must not match.
	variantL := &Variant{Name: "Size", Value: "L", Price: decimal.NewFromInt(27)}
	_, ok = store.Item("p1", variantL)
	assert.False(t, ok)

	// Deep equality against an equal but distinct descriptor matches.
	assert.True(t, store.IsInCart("p1", &Variant{Name: "Size", Value: "M", Price: decimal.NewFromInt(27)}))
	assert.False(t, store.IsInCart("p2", nil))
}

func TestStore_DerivedValues(t *testing.T) {
	store, api := newTestStore()

	// No cart loaded: everything is zero.
	assert.Equal(t, 0, store.ItemCount())
	assert.True(t, store.TotalAmount().IsZero())
	assert.True(t, store.SubtotalAmount().IsZero())

	c := emptyCart()
	c.Items = []CartItem{
		{ID: "item-1", Product: testProduct("p1"), Quantity: 2, Price: decimal.NewFromInt(25)},
		{ID: "item-2", Product: testProduct("p2"), Quantity: 3, Price: decimal.NewFromInt(10)},
	}
	c.Subtotal = decimal.NewFromInt(80)
	c.Shipping = decimal.NewFromInt(10)
	c.Tax = decimal.NewFromInt(8)
	c.Total = decimal.NewFromInt(98)
	seed(t, store, api, c)

	assert.Equal(t, 5, store.ItemCount())
	assert.True(t, store.SubtotalAmount().Equal(decimal.NewFromInt(80)))
	assert.True(t, store.ShippingAmount().Equal(decimal.NewFromInt(10)))
	assert.True(t, store.TaxAmount().Equal(decimal.NewFromInt(8)))
	assert.True(t, store.TotalAmount().Equal(decimal.NewFromInt(98)))
}

// ============================================
// Sequencing Tests
// ============================================

func TestStore_StaleResponseIsDiscarded(t *testing.T) {
	store, api := newTestStore()

	started := make(chan struct{})
	release := make(chan struct{})
	cartA := emptyCart()
	cartA.Total = decimal.NewFromInt(1)
	cartB := emptyCart()
	cartB.Total = decimal.NewFromInt(2)

	api.UpdateItemFn = func(ctx context.Context, itemID string, quantity int) (*Cart, error) {
		if quantity == 2 {
			close(started)
			<-release // first click's response resolves last
			return cartA, nil
		}
		return cartB, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.UpdateItemQuantity(context.Background(), "item-1", 2)
	}()
	<-started

	// Second click completes first and is applied.
	require.NoError(t, store.UpdateItemQuantity(context.Background(), "item-1", 3))
	require.True(t, store.TotalAmount().Equal(decimal.NewFromInt(2)))

	// The earlier click's late response must not overwrite it.
	close(release)
	<-done
	assert.True(t, store.TotalAmount().Equal(decimal.NewFromInt(2)),
		"stale response overwrote a newer snapshot")
	assert.False(t, store.Loading())
}

// ============================================
// Subscription Tests
// ============================================

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	store, _ := newTestStore()

	var mu sync.Mutex
	notified := 0
	unsubscribe := store.Subscribe(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	require.NoError(t, store.GetCart(context.Background()))
	mu.Lock()
	afterFetch := notified
	mu.Unlock()
	assert.GreaterOrEqual(t, afterFetch, 2, "begin and finish must both notify")

	unsubscribe()
	require.NoError(t, store.GetCart(context.Background()))
	mu.Lock()
	assert.Equal(t, afterFetch, notified)
	mu.Unlock()
}

func TestStore_IndependentInstances(t *testing.T) {
	storeA, apiA := newTestStore()
	storeB, _ := newTestStore()

	seed(t, storeA, apiA, cartWithItem(CartItem{
		ID: "item-1", Product: testProduct("p1"), Quantity: 1, Price: decimal.NewFromInt(25),
	}))

	assert.NotNil(t, storeA.Cart())
	assert.Nil(t, storeB.Cart(), "stores must not share state")
}

func TestStore_ErrFallbackMessage(t *testing.T) {
	store, api := newTestStore()
	api.FetchCartFn = func(ctx context.Context) (*Cart, error) {
		return nil, errors.New("")
	}

	_ = store.GetCart(context.Background())

	assert.Equal(t, fallbackErrMessage, store.Err())
}

func TestStore_LoadingWhileInFlight(t *testing.T) {
	store, api := newTestStore()
	started := make(chan struct{})
	release := make(chan struct{})
	api.FetchCartFn = func(ctx context.Context) (*Cart, error) {
		close(started)
		<-release
		return emptyCart(), nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.GetCart(context.Background())
	}()
	<-started
	assert.True(t, store.Loading())
	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
	}
	assert.False(t, store.Loading())
}
