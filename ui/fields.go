package ui

import "sync"

// FieldGroup is the additional-billing-fields block revealed by the
// IBAN live validation. Reveal and Hide are idempotent: re-applying the
// current state performs no mutation, so an unchanged input value never
// causes render flicker.
type FieldGroup struct {
	mu        sync.Mutex
	visible   bool
	required  bool
	mutations int
}

// Reveal shows the block and marks its fields required.
func (g *FieldGroup) Reveal() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.visible && g.required {
		return
	}
	g.visible = true
	g.required = true
	g.mutations++
}

// Hide removes the block and clears required-ness.
func (g *FieldGroup) Hide() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.visible && !g.required {
		return
	}
	g.visible = false
	g.required = false
	g.mutations++
}

func (g *FieldGroup) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

func (g *FieldGroup) Required() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.required
}

// Mutations counts actual state changes, for asserting idempotence.
func (g *FieldGroup) Mutations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mutations
}

// CountrySelect models the country selector next to the IBAN field.
type CountrySelect struct {
	mu       sync.Mutex
	options  []string
	selected string
}

// NewCountrySelect builds a selector with the given option codes.
func NewCountrySelect(options ...string) *CountrySelect {
	return &CountrySelect{options: options}
}

// Select picks the option if it exists and reports whether it did.
func (c *CountrySelect) Select(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, opt := range c.options {
		if opt == code {
			c.selected = code
			return true
		}
	}
	return false
}

// Selected returns the currently selected option code.
func (c *CountrySelect) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// WalletButton is the platform payment-request button. It starts hidden
// and is only revealed once the processor reports the capability.
type WalletButton struct {
	mu      sync.Mutex
	visible bool
}

func (b *WalletButton) Reveal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visible = true
}

func (b *WalletButton) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}
