// Package cartapi is the HTTP client for the cart service. It implements
// the cart.API contract the Store mediates through, speaking the service's
// uniform {success, message, data} envelope.
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/category"
)

// GuestTokenHeader is where the service returns a freshly minted guest
// session token.
const GuestTokenHeader = "X-Guest-Token"

// APIError is a failure reported by the service (success=false). Transport
// errors are returned as-is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Client talks to the cart service for one storefront session. It holds the
// session's identity: either an upstream-authenticated user id or a guest
// token captured from the service's first response.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu         sync.Mutex
	guestToken string
	userID     string
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithUserID attaches an authenticated identity. Mutually exclusive with
// guest identity; when set, no guest token is sent.
func WithUserID(userID string) Option {
	return func(c *Client) { c.userID = userID }
}

// WithGuestToken resumes a persisted guest session.
func WithGuestToken(token string) Option {
	return func(c *Client) { c.guestToken = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GuestToken returns the current guest session token, for persistence
// across storefront sessions.
func (c *Client) GuestToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guestToken
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	if c.userID != "" {
		req.Header.Set("X-User-Id", c.userID)
	} else if c.guestToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.guestToken)
	}
	c.mu.Unlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if token := resp.Header.Get(GuestTokenHeader); token != "" {
		c.mu.Lock()
		c.guestToken = token
		c.mu.Unlock()
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		message := env.Message
		if message == "" {
			message = "request failed"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	return env.Data, nil
}

func (c *Client) doCart(ctx context.Context, method, path string, body any) (*cart.Cart, error) {
	data, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	var out cart.Cart
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &out, nil
}

func (c *Client) FetchCart(ctx context.Context) (*cart.Cart, error) {
	return c.doCart(ctx, http.MethodGet, "/cart", nil)
}

func (c *Client) AddItem(ctx context.Context, req cart.AddItemRequest) (*cart.Cart, error) {
	return c.doCart(ctx, http.MethodPost, "/cart/items", req)
}

func (c *Client) UpdateItem(ctx context.Context, itemID string, quantity int) (*cart.Cart, error) {
	body := map[string]int{"quantity": quantity}
	return c.doCart(ctx, http.MethodPut, "/cart/items/"+itemID, body)
}

func (c *Client) RemoveItem(ctx context.Context, itemID string) (*cart.Cart, error) {
	return c.doCart(ctx, http.MethodDelete, "/cart/items/"+itemID, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/cart", nil)
	return err
}

func (c *Client) ApplyCoupon(ctx context.Context, code string) (*cart.Cart, error) {
	body := map[string]string{"code": code}
	return c.doCart(ctx, http.MethodPost, "/cart/coupon", body)
}

func (c *Client) RemoveCoupon(ctx context.Context) (*cart.Cart, error) {
	return c.doCart(ctx, http.MethodDelete, "/cart/coupon", nil)
}

// Products fetches the storefront catalog.
func (c *Client) Products(ctx context.Context) ([]cart.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	var out []cart.Product
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return out, nil
}

// Categories fetches the flat category list for tree derivation.
func (c *Client) Categories(ctx context.Context) ([]category.Category, error) {
	data, err := c.do(ctx, http.MethodGet, "/categories", nil)
	if err != nil {
		return nil, err
	}
	var out []category.Category
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return out, nil
}
