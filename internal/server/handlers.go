package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/notification"
)

// GuestTokenHeader carries a freshly minted guest session token back to
// first-contact clients.
const GuestTokenHeader = "X-Guest-Token"

type ctxKey int

const ownerKey ctxKey = iota

// Handlers implements the cart API: the authoritative side of the cart,
// owning pricing, merge decisions and coupon validation.
type Handlers struct {
	storage CartStorage
	catalog catalog.Provider
	pricing PricingConfig
	tokens  *auth.GuestTokenService
	events  notification.Publisher
}

func NewHandlers(storage CartStorage, cat catalog.Provider, pricing PricingConfig,
	tokens *auth.GuestTokenService, events notification.Publisher) *Handlers {
	return &Handlers{
		storage: storage,
		catalog: cat,
		pricing: pricing,
		tokens:  tokens,
		events:  events,
	}
}

// NewRouter builds the service router.
func NewRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.Register(r)
	return r
}

// Register mounts all routes.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/categories", h.listCategories)

	r.Group(func(r chi.Router) {
		r.Use(h.withIdentity)
		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addItem)
		r.Put("/cart/items/{id}", h.updateItem)
		r.Delete("/cart/items/{id}", h.removeItem)
		r.Post("/cart/coupon", h.applyCoupon)
		r.Delete("/cart/coupon", h.removeCoupon)
	})
}

// withIdentity resolves the cart owner. An upstream-authenticated user is
// trusted via X-User-Id (set by the gateway); otherwise a guest session
// token is verified, or a new guest identity is minted and returned in the
// response header. User and guest identity are mutually exclusive.
func (h *Handlers) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner string

		if userID := r.Header.Get("X-User-Id"); userID != "" {
			owner = "user:" + userID
		} else if bearer := bearerToken(r); bearer != "" {
			guestID, err := h.tokens.Verify(bearer)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid guest session")
				return
			}
			owner = "guest:" + guestID
		} else {
			guestID := uuid.NewString()
			token, _, err := h.tokens.Issue(guestID)
			if err != nil {
				log.Printf("[Cart] Failed to issue guest token: %v", err)
				respondError(w, http.StatusInternalServerError, "failed to start guest session")
				return
			}
			w.Header().Set(GuestTokenHeader, token)
			owner = "guest:" + guestID
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// loadOrNewCart returns the owner's cart, creating an unsaved empty one
// when none exists yet. Carts come into being on the first mutation.
func (h *Handlers) loadOrNewCart(ctx context.Context, owner string) (*cart.Cart, error) {
	c, err := h.storage.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	c = &cart.Cart{ID: uuid.NewString(), Items: []cart.CartItem{}}
	switch {
	case strings.HasPrefix(owner, "user:"):
		c.UserID = strings.TrimPrefix(owner, "user:")
	case strings.HasPrefix(owner, "guest:"):
		c.GuestID = strings.TrimPrefix(owner, "guest:")
	}
	h.pricing.Reprice(c)
	return c, nil
}

func (h *Handlers) saveAndRespond(w http.ResponseWriter, r *http.Request, owner, eventType string, c *cart.Cart) {
	if err := h.storage.Save(r.Context(), owner, c); err != nil {
		log.Printf("[Cart] Failed to save cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to save cart")
		return
	}
	if err := h.events.Publish(r.Context(), notification.NewCartEvent(eventType, owner, c)); err != nil {
		log.Printf("[Cart] Failed to publish %s for %s: %v", eventType, owner, err)
	}
	respondData(w, http.StatusOK, c)
}

// GET /cart
func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	c, err := h.loadOrNewCart(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	respondData(w, http.StatusOK, c)
}

// POST /cart/items
func (h *Handlers) addItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	var req cart.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("[Cart] Failed to look up product %s: %v", req.ProductID, err)
		respondError(w, http.StatusInternalServerError, "failed to look up product")
		return
	}

	c, err := h.loadOrNewCart(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	// Merge into an existing line when product and variant match exactly;
	// otherwise open a new line.
	merged := false
	for i := range c.Items {
		if c.Items[i].Product.ID == product.ID && req.Variant.Equal(c.Items[i].Variant) {
			c.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		price := product.Price
		if req.Variant != nil && req.Variant.Price.IsPositive() {
			price = req.Variant.Price
		}
		c.Items = append(c.Items, cart.CartItem{
			ID:       uuid.NewString(),
			Product:  *product,
			Quantity: req.Quantity,
			Variant:  req.Variant,
			Price:    price,
		})
	}

	h.pricing.Reprice(c)
	h.saveAndRespond(w, r, owner, notification.EventCartUpdated, c)
}

// PUT /cart/items/{id}
func (h *Handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	itemID := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	c, err := h.storage.Load(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if c == nil {
		respondError(w, http.StatusNotFound, "cart item not found")
		return
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = req.Quantity
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "cart item not found")
		return
	}

	h.pricing.Reprice(c)
	h.saveAndRespond(w, r, owner, notification.EventCartUpdated, c)
}

// DELETE /cart/items/{id}. Removing an unknown id is a no-op.
func (h *Handlers) removeItem(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	itemID := chi.URLParam(r, "id")

	c, err := h.loadOrNewCart(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != itemID {
			items = append(items, it)
		}
	}
	c.Items = items

	h.pricing.Reprice(c)
	h.saveAndRespond(w, r, owner, notification.EventCartUpdated, c)
}

// DELETE /cart
func (h *Handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	if err := h.storage.Delete(r.Context(), owner); err != nil {
		log.Printf("[Cart] Failed to clear cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	if err := h.events.Publish(r.Context(), notification.NewCartEvent(notification.EventCartCleared, owner, nil)); err != nil {
		log.Printf("[Cart] Failed to publish %s for %s: %v", notification.EventCartCleared, owner, err)
	}
	respondData(w, http.StatusOK, nil)
}

// POST /cart/coupon
func (h *Handlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code := cart.NormalizeCouponCode(req.Code)
	if code == "" {
		respondError(w, http.StatusBadRequest, "coupon code is required")
		return
	}

	coupon, err := h.catalog.Coupon(r.Context(), code)
	if err != nil {
		if errors.Is(err, catalog.ErrCouponNotFound) {
			respondError(w, http.StatusBadRequest, "invalid coupon code")
			return
		}
		log.Printf("[Cart] Failed to look up coupon %s: %v", code, err)
		respondError(w, http.StatusInternalServerError, "failed to look up coupon")
		return
	}

	c, err := h.loadOrNewCart(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	if err := ValidateCoupon(coupon, c.Items); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	applied := *coupon
	applied.Code = code
	c.Coupon = &applied

	h.pricing.Reprice(c)
	h.saveAndRespond(w, r, owner, notification.EventCouponApplied, c)
}

// DELETE /cart/coupon
func (h *Handlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	c, err := h.loadOrNewCart(r.Context(), owner)
	if err != nil {
		log.Printf("[Cart] Failed to load cart for %s: %v", owner, err)
		respondError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	c.Coupon = nil
	h.pricing.Reprice(c)
	h.saveAndRespond(w, r, owner, notification.EventCouponRemoved, c)
}

// GET /products
func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		log.Printf("[Cart] Failed to list products: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	respondData(w, http.StatusOK, products)
}

// GET /categories
func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		log.Printf("[Cart] Failed to list categories: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	respondData(w, http.StatusOK, categories)
}
