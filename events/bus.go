// Package events is the seam between the payment engine and
// page-specific markup: typed topics over an in-process bus, plus a
// request/response helper that lets the page supply billing-address
// data asynchronously during an express confirmation.
package events

import (
	"context"
	"errors"

	evbus "github.com/asaskevich/EventBus"
)

// Topic constants for page events exchanged with the checkout engine.
const (
	TopicDonationChanged       = "donation.changed"
	TopicQuickPaymentAvailable = "quickpayment.available"
	TopicPaymentConfirm        = "payment.confirm"
)

// ErrNoPayerDataProvider is returned when a payer-data request is made
// but the page never subscribed to answer it.
var ErrNoPayerDataProvider = errors.New("events: no payer data provider subscribed")

// DonationChange carries a live amount/interval adjustment from the page.
type DonationChange struct {
	Amount   int64 `json:"amount"`
	Interval int   `json:"interval"`
}

// PayerData is the billing information the page supplies for a
// quick-payment submission.
type PayerData struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	City           string `json:"city"`
	Postcode       string `json:"postcode"`
	Country        string `json:"country"`
	StreetAddress1 string `json:"street_address_1"`
	StreetAddress2 string `json:"street_address_2"`
}

// PayerDataRequest asks the page for supplementary billing fields. The
// subscriber must answer with exactly one of Resolve or Reject; extra
// calls are ignored.
type PayerDataRequest struct {
	// Seed holds the fields already known from the wallet sheet.
	Seed    PayerData
	resolve chan PayerData
	reject  chan error
}

// Resolve answers the request with complete payer data.
func (r *PayerDataRequest) Resolve(data PayerData) {
	select {
	case r.resolve <- data:
	default:
	}
}

// Reject declines the request.
func (r *PayerDataRequest) Reject(err error) {
	select {
	case r.reject <- err:
	default:
	}
}

// Bus fans typed page events out to subscribers.
type Bus struct {
	inner evbus.Bus
}

// NewBus returns an empty in-process bus.
func NewBus() *Bus {
	return &Bus{inner: evbus.New()}
}

// PublishDonationChange notifies subscribers of a live amount change.
func (b *Bus) PublishDonationChange(change DonationChange) {
	b.inner.Publish(TopicDonationChanged, change)
}

// SubscribeDonationChange registers a live amount change handler.
func (b *Bus) SubscribeDonationChange(fn func(DonationChange)) error {
	return b.inner.Subscribe(TopicDonationChanged, fn)
}

// PublishAvailable announces which express payment methods became
// available, so the page can unhide the surrounding container.
func (b *Bus) PublishAvailable(methods []string) {
	b.inner.Publish(TopicQuickPaymentAvailable, methods)
}

// SubscribeAvailable registers an availability handler.
func (b *Bus) SubscribeAvailable(fn func(methods []string)) error {
	return b.inner.Subscribe(TopicQuickPaymentAvailable, fn)
}

// OnPayerData registers the page-side answerer for payer-data requests.
func (b *Bus) OnPayerData(fn func(*PayerDataRequest)) error {
	return b.inner.Subscribe(TopicPaymentConfirm, fn)
}

// RequestPayerData publishes a payer-data request and waits for the
// page to answer or the context to expire.
func (b *Bus) RequestPayerData(ctx context.Context, seed PayerData) (PayerData, error) {
	if !b.inner.HasCallback(TopicPaymentConfirm) {
		return PayerData{}, ErrNoPayerDataProvider
	}
	req := &PayerDataRequest{
		Seed:    seed,
		resolve: make(chan PayerData, 1),
		reject:  make(chan error, 1),
	}
	b.inner.Publish(TopicPaymentConfirm, req)
	select {
	case data := <-req.resolve:
		return data, nil
	case err := <-req.reject:
		return PayerData{}, err
	case <-ctx.Done():
		return PayerData{}, ctx.Err()
	}
}
