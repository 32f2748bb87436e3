package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Dialer opens a connection to the processor SDK for a publishable key.
type Dialer func(ctx context.Context, publicKey string) (Client, error)

// ErrNotConnected is returned when the handle is used before Connect.
var ErrNotConnected = errors.New("processor: not connected")

// Handle is the lazily-initialized connection to the processor. It owns
// at most one underlying client and at most one elements factory.
type Handle struct {
	mu        sync.Mutex
	publicKey string
	dial      Dialer
	client    Client
	elements  *Elements
	gen       int
}

// NewHandle builds an unconnected handle. A nil dialer defaults to the
// Stripe-backed client.
func NewHandle(publicKey string, dial Dialer) *Handle {
	if dial == nil {
		dial = DialStripe
	}
	return &Handle{publicKey: publicKey, dial: dial}
}

// Connect initializes the underlying SDK client. Calling it again after
// a successful connect is a no-op.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client != nil {
		return nil
	}
	client, err := h.dial(ctx, h.publicKey)
	if err != nil {
		return fmt.Errorf("processor: connect: %w", err)
	}
	h.client = client
	return nil
}

// Client returns the connected SDK client.
func (h *Handle) Client() (Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil, ErrNotConnected
	}
	return h.client, nil
}

// Elements returns the widget factory for the requested configuration.
// Within the same locale and mode the existing factory is updated in
// place for amount/currency changes; a mode or locale change discards it
// and creates a fresh one, since the factory cannot switch modes.
func (h *Handle) Elements(cfg ElementsConfig) *Elements {
	h.mu.Lock()
	defer h.mu.Unlock()
	current := h.elements
	if current != nil {
		existing := current.Config()
		if existing.Mode == cfg.Mode && existing.Locale == cfg.Locale {
			current.Update(cfg.Amount, cfg.Currency)
			return current
		}
	}
	h.gen++
	h.elements = &Elements{cfg: cfg, generation: h.gen}
	return h.elements
}

// Elements is the mounted widget factory. Amount and currency may be
// updated live; mode and locale are fixed for its lifetime.
type Elements struct {
	mu         sync.Mutex
	cfg        ElementsConfig
	generation int
}

// Config returns the factory's current configuration.
func (e *Elements) Config() ElementsConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Update applies an in-place amount/currency change.
func (e *Elements) Update(amount int64, currency string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount > 0 {
		e.cfg.Amount = amount
	}
	if currency != "" {
		e.cfg.Currency = currency
	}
}

// Generation identifies the factory instance; it changes only when the
// handle had to recreate the factory.
func (e *Elements) Generation() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
