// Package processor abstracts the operations the checkout engine needs
// from the upstream payment processor: confirming intents and mandates,
// tokenizing cards and reporting wallet capability.
package processor

import (
	"context"
	"errors"
	"strings"

	"github.com/donare/checkout/session"
)

// Intent statuses reported by confirmation calls.
const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresAction        = "requires_action"
	StatusRequiresCapture       = "requires_capture"
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusCanceled              = "canceled"
)

// SetupFutureUsageOffSession requests that the payment method stays
// reusable for merchant-initiated charges.
const SetupFutureUsageOffSession = "off_session"

// FallbackErrorMessage is shown when a processor fault carries no
// human-readable message of its own.
const FallbackErrorMessage = "Payment could not be processed."

// CardDetails is the collected card input handed to tokenization.
type CardDetails struct {
	Number   string
	ExpMonth int64
	ExpYear  int64
	CVC      string
}

// ConfirmParams carries the optional inputs of a confirmation call.
// Zero values mean the corresponding parameter is omitted.
type ConfirmParams struct {
	// PaymentMethod attaches an already-tokenized payment method.
	PaymentMethod string
	// Card tokenizes fresh card details as part of the confirmation.
	Card *CardDetails
	// SetupFutureUsage marks the method for later off-session reuse.
	SetupFutureUsage string
	// ReturnURL is where the processor sends the payer after a
	// redirect-based secondary action.
	ReturnURL string
	// Descriptor is the statement descriptor for this charge.
	Descriptor string
}

// IntentState is the processor's view of an intent after a confirm call.
type IntentState struct {
	ID           string
	Status       string
	ClientSecret string
}

// MethodRef identifies a tokenized, reusable payment method.
type MethodRef struct {
	ID string
}

// ConfirmationResult is the union shape returned by processor calls.
// Exactly one of the pointers is set on success.
type ConfirmationResult struct {
	PaymentIntent *IntentState
	SetupIntent   *IntentState
	PaymentMethod *MethodRef
}

// Succeeded reports terminal payment success. Only an intent status of
// "succeeded" counts; anything else is either pending or a fault.
func (r ConfirmationResult) Succeeded() bool {
	return r.PaymentIntent != nil && r.PaymentIntent.Status == StatusSucceeded
}

// RequiresAction reports that the intent needs a secondary user step.
func (r ConfirmationResult) RequiresAction() bool {
	return r.PaymentIntent != nil && r.PaymentIntent.Status == StatusRequiresAction
}

// Error is a processor fault with a message fit for display.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// UserMessage extracts a displayable message from a confirmation error,
// falling back to a generic string for anything non-processor.
func UserMessage(err error) string {
	var perr *Error
	if errors.As(err, &perr) && strings.TrimSpace(perr.Message) != "" {
		return perr.Message
	}
	return FallbackErrorMessage
}

// Client is the connection-level contract with the processor SDK.
type Client interface {
	// ConfirmPayment finalizes a payment intent identified by its
	// client secret.
	ConfirmPayment(ctx context.Context, clientSecret string, params ConfirmParams) (ConfirmationResult, error)
	// ConfirmSetup finalizes a setup intent (mandate) identified by its
	// client secret.
	ConfirmSetup(ctx context.Context, clientSecret string, params ConfirmParams) (ConfirmationResult, error)
	// CreatePaymentMethod tokenizes card details into a reusable
	// payment method with the billing name attached.
	CreatePaymentMethod(ctx context.Context, card CardDetails, billingName string) (ConfirmationResult, error)
	// CanMakePayment reports whether the platform wallet sheet is
	// available for this integration.
	CanMakePayment(ctx context.Context) (bool, error)
}

// ElementsConfig keys the widget factory. A factory is unique per
// (locale, mode, amount, currency) tuple.
type ElementsConfig struct {
	Locale   string
	Mode     session.Mode
	Amount   int64
	Currency string
}
