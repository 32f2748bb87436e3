package processor

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeClient implements Client on top of the official Stripe SDK.
type StripeClient struct {
	api *client.API
	// wallets lists the wallet brands registered for this integration's
	// payment method domain. CanMakePayment reports availability from it.
	wallets []string
}

// NewStripeClient builds a Stripe-backed client for the given key.
func NewStripeClient(key string, wallets ...string) (*StripeClient, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("processor: stripe key is required")
	}
	api := &client.API{}
	api.Init(key, nil)
	return &StripeClient{api: api, wallets: wallets}, nil
}

// DialStripe is the default Dialer used by NewHandle.
func DialStripe(_ context.Context, publicKey string) (Client, error) {
	return NewStripeClient(publicKey)
}

// ConfirmPayment finalizes the payment intent behind the client secret.
func (c *StripeClient) ConfirmPayment(ctx context.Context, clientSecret string, params ConfirmParams) (ConfirmationResult, error) {
	var zero ConfirmationResult
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return zero, err
	}
	confirm := &stripe.PaymentIntentConfirmParams{}
	confirm.Context = ctx
	if params.Card != nil {
		method, err := c.CreatePaymentMethod(ctx, *params.Card, "")
		if err != nil {
			return zero, err
		}
		confirm.PaymentMethod = stripe.String(method.PaymentMethod.ID)
	} else if params.PaymentMethod != "" {
		confirm.PaymentMethod = stripe.String(params.PaymentMethod)
	}
	if params.SetupFutureUsage != "" {
		confirm.SetupFutureUsage = stripe.String(params.SetupFutureUsage)
	}
	if params.ReturnURL != "" {
		confirm.ReturnURL = stripe.String(params.ReturnURL)
	}
	intent, err := c.api.PaymentIntents.Confirm(id, confirm)
	if err != nil {
		return zero, mapStripeError(err)
	}
	return ConfirmationResult{PaymentIntent: &IntentState{
		ID:           intent.ID,
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}}, nil
}

// ConfirmSetup finalizes the setup intent (mandate) behind the secret.
func (c *StripeClient) ConfirmSetup(ctx context.Context, clientSecret string, params ConfirmParams) (ConfirmationResult, error) {
	var zero ConfirmationResult
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return zero, err
	}
	confirm := &stripe.SetupIntentConfirmParams{}
	confirm.Context = ctx
	if params.PaymentMethod != "" {
		confirm.PaymentMethod = stripe.String(params.PaymentMethod)
	}
	if params.ReturnURL != "" {
		confirm.ReturnURL = stripe.String(params.ReturnURL)
	}
	intent, err := c.api.SetupIntents.Confirm(id, confirm)
	if err != nil {
		return zero, mapStripeError(err)
	}
	return ConfirmationResult{SetupIntent: &IntentState{
		ID:           intent.ID,
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}}, nil
}

// CreatePaymentMethod tokenizes card details into a reusable method.
func (c *StripeClient) CreatePaymentMethod(ctx context.Context, card CardDetails, billingName string) (ConfirmationResult, error) {
	var zero ConfirmationResult
	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(card.ExpMonth),
			ExpYear:  stripe.Int64(card.ExpYear),
			CVC:      stripe.String(card.CVC),
		},
	}
	params.Context = ctx
	if strings.TrimSpace(billingName) != "" {
		params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(billingName),
		}
	}
	method, err := c.api.PaymentMethods.New(params)
	if err != nil {
		return zero, mapStripeError(err)
	}
	return ConfirmationResult{PaymentMethod: &MethodRef{ID: method.ID}}, nil
}

// CanMakePayment reports wallet availability for this integration.
func (c *StripeClient) CanMakePayment(_ context.Context) (bool, error) {
	return len(c.wallets) > 0, nil
}

// IntentIDFromSecret extracts the intent identifier from a client
// secret of the form "pi_xxx_secret_yyy" or "seti_xxx_secret_yyy".
func IntentIDFromSecret(secret string) (string, error) {
	idx := strings.Index(secret, "_secret")
	if idx <= 0 {
		return "", &Error{Code: "invalid_client_secret", Message: FallbackErrorMessage}
	}
	id := secret[:idx]
	if !strings.HasPrefix(id, "pi_") && !strings.HasPrefix(id, "seti_") {
		return "", &Error{Code: "invalid_client_secret", Message: FallbackErrorMessage}
	}
	return id, nil
}

func mapStripeError(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return &Error{Code: string(serr.Code), Message: serr.Msg}
	}
	return err
}
