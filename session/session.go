// Package session holds the immutable configuration snapshot for one
// checkout attempt, plus the mutable amount/interval overlay used by
// express-checkout surfaces.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Mode distinguishes one-off payments from recurring subscriptions.
type Mode string

const (
	ModePayment      Mode = "payment"
	ModeSubscription Mode = "subscription"
)

// Session is the configuration snapshot for a single checkout page load.
// It is built once at bootstrap and never mutated afterwards; live
// amount/interval changes go through an AmountInterval overlay instead.
type Session struct {
	ProcessorPublicKey string `validate:"required"`
	// ClientSecret is only present when the server pre-created a pending
	// intent for a one-off payment.
	ClientSecret string
	Locale       string
	Country      string
	// Amount is in integer minor units.
	Amount   int64  `validate:"gt=0"`
	Currency string `validate:"required,len=3"`
	Label    string
	// SuccessURL is the terminal redirect target unless the server
	// overrides it in a processing response.
	SuccessURL string `validate:"required,url"`
	PayerName  string
	IsDonation bool
	// Interval is the recurring period count; zero means one-off.
	Interval int `validate:"gte=0"`
	// ActionURL is the application server endpoint receiving payment data.
	ActionURL string `validate:"required,url"`
	SiteName  string
}

var validate = validator.New()

// Validate checks that the snapshot carries everything a checkout needs.
func (s Session) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

// Recurring reports whether the session describes a subscription.
func (s Session) Recurring() bool {
	return s.Interval > 0
}

// Mode returns the processor mode matching the session interval.
func (s Session) Mode() Mode {
	if s.Recurring() {
		return ModeSubscription
	}
	return ModePayment
}

// StatementDescriptor combines the site name and the order label the way
// the payer will see it on their statement.
func (s Session) StatementDescriptor() string {
	desc := strings.TrimSpace(s.SiteName + " " + s.Label)
	if len(desc) > 22 {
		desc = desc[:22]
	}
	return desc
}

// Amounts is a point-in-time view of the overlay.
type Amounts struct {
	Amount   int64
	Currency string
	Interval int
	// Notified reports whether an amount/interval change has arrived
	// since bootstrap; until then the fallback values above apply.
	Notified bool
}

// AmountInterval overlays the static session amount and interval for
// express-checkout flows. The session itself stays immutable; this is the
// only piece of checkout configuration that may change after bootstrap.
type AmountInterval struct {
	mu       sync.Mutex
	amount   int64
	currency string
	interval int
	notified bool
}

// NewAmountInterval seeds the overlay with fallback values, normally the
// static session amount and interval.
func NewAmountInterval(amount int64, currency string, interval int) *AmountInterval {
	return &AmountInterval{amount: amount, currency: currency, interval: interval}
}

// OverlayFor builds an overlay seeded from the session snapshot.
func OverlayFor(s Session) *AmountInterval {
	return NewAmountInterval(s.Amount, s.Currency, s.Interval)
}

// Update records a live amount/interval change from the page.
func (o *AmountInterval) Update(amount int64, interval int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if amount > 0 {
		o.amount = amount
	}
	if interval >= 0 {
		o.interval = interval
	}
	o.notified = true
}

// Current returns the effective amount/interval view.
func (o *AmountInterval) Current() Amounts {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Amounts{
		Amount:   o.amount,
		Currency: o.currency,
		Interval: o.interval,
		Notified: o.notified,
	}
}

// Mode returns the processor mode for the current overlay interval.
func (o *AmountInterval) Mode() Mode {
	if o.Current().Interval > 0 {
		return ModeSubscription
	}
	return ModePayment
}
