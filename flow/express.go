package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/events"
	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/session"
)

// BrandApplePay is the wallet brand whose pre-confirm update request
// carries recurring-payment metadata.
const BrandApplePay = "apple_pay"

// Widget is the embedded express-checkout component offering several
// wallet brands behind one mount point.
type Widget interface {
	// Reveal shows the widget once at least one method is available.
	Reveal()
	// Fail signals a generic failure back to the widget so its sheet
	// can close without a payment.
	Fail()
}

// RecurringMetadata is the method-specific update resolved during the
// pre-confirm callback for recurring payments.
type RecurringMetadata struct {
	Label          string
	Amount         int64
	IntervalMonths int
}

// BillingDetails is the payer identity collected by the wallet sheet.
// Name and email must be present before anything is sent to the server.
type BillingDetails struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

// ExpressFlow drives the embedded multi-method widget. Its amount and
// interval may change after mount through donation-change events; the
// derived overlay replaces the static session configuration from the
// first notification on.
type ExpressFlow struct {
	Engine  *engine.Engine
	Bus     *events.Bus
	Widget  Widget
	Overlay *session.AmountInterval

	validate *validator.Validate
	guard    submitGuard

	mu           sync.Mutex
	readyMethods []string
	revealed     bool
}

// NewExpressFlow seeds the flow's overlay from the engine session.
func NewExpressFlow(eng *engine.Engine, bus *events.Bus, widget Widget) *ExpressFlow {
	return &ExpressFlow{
		Engine:   eng,
		Bus:      bus,
		Widget:   widget,
		Overlay:  session.OverlayFor(eng.Session),
		validate: validator.New(),
	}
}

// Setup wires amount/interval change notifications into the overlay.
// The first notification also releases a reveal that was deferred
// because the widget became ready before any amount was known.
func (f *ExpressFlow) Setup(_ context.Context) error {
	return f.Bus.SubscribeDonationChange(func(c events.DonationChange) {
		f.Overlay.Update(c.Amount, c.Interval)
		f.reveal(nil)
	})
}

// OnReady handles the widget's readiness callback. The widget stays
// hidden until both conditions hold: at least one method is available
// and a first amount/interval notification has arrived.
func (f *ExpressFlow) OnReady(methods []string) {
	if len(methods) == 0 {
		return
	}
	f.reveal(methods)
}

// reveal shows the widget and announces the available methods, at most
// once, as soon as readiness and the first notification have both
// happened. Passing methods records readiness; nil re-checks after a
// notification.
func (f *ExpressFlow) reveal(methods []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if methods != nil {
		f.readyMethods = methods
	}
	if f.revealed || len(f.readyMethods) == 0 || !f.Overlay.Current().Notified {
		return
	}
	f.revealed = true
	f.Widget.Reveal()
	f.Bus.PublishAvailable(f.readyMethods)
}

// OnPreConfirm runs when the payer taps a wallet icon, before the sheet
// opens. It pushes the latest derived configuration into the live
// elements configuration (the only point where mutating it cannot race
// a sheet render) and resolves the brand's update request.
func (f *ExpressFlow) OnPreConfirm(brand string) *RecurringMetadata {
	s := f.Engine.Session
	cur := f.Overlay.Current()
	f.Engine.Processor.Elements(processor.ElementsConfig{
		Locale:   s.Locale,
		Mode:     f.Overlay.Mode(),
		Amount:   cur.Amount,
		Currency: cur.Currency,
	})
	if brand == BrandApplePay && cur.Interval > 0 {
		return &RecurringMetadata{
			Label:          s.Label,
			Amount:         cur.Amount,
			IntervalMonths: cur.Interval,
		}
	}
	return nil
}

// OnConfirm handles the widget's confirm callback: validate billing
// identity, collect the remaining payer data from the page, send the
// tagged quick-payment message and finalize with the processor.
func (f *ExpressFlow) OnConfirm(ctx context.Context, billing BillingDetails) error {
	e := f.Engine
	if err := f.validate.Struct(billing); err != nil {
		// Validation fault: no server call is made.
		e.Metrics.Outcome(FlowExpress, obs.ResultValidationError)
		f.Widget.Fail()
		return fmt.Errorf("express: billing details incomplete: %w", err)
	}
	if !f.guard.begin() {
		f.Widget.Fail()
		return ErrSubmissionInFlight
	}
	defer f.guard.end()

	e.UI.Pending()

	payer, err := f.Bus.RequestPayerData(ctx, events.PayerData{Name: billing.Name, Email: billing.Email})
	if err != nil {
		e.Metrics.Outcome(FlowExpress, obs.ResultValidationError)
		e.Log.Warn().Err(err).Msg("express: page did not supply payer data")
		e.UI.ShowError(processor.FallbackErrorMessage)
		return err
	}

	cur := f.Overlay.Current()
	resp, err := e.SendPaymentData(ctx, engine.QuickPaymentMessage{
		Amount:         cur.Amount,
		Currency:       cur.Currency,
		Interval:       cur.Interval,
		Name:           payer.Name,
		Email:          payer.Email,
		City:           payer.City,
		Postcode:       payer.Postcode,
		Country:        payer.Country,
		StreetAddress1: payer.StreetAddress1,
		StreetAddress2: payer.StreetAddress2,
	})
	if err != nil {
		e.Metrics.Outcome(FlowExpress, obs.ResultNetworkError)
		e.UI.ShowError(engine.NetworkFailureMessage)
		return err
	}
	if resp.Failed() {
		e.Metrics.Outcome(FlowExpress, obs.ResultServerError)
		e.UI.ShowError(resp.Error)
		return nil
	}

	client, err := e.Processor.Client()
	if err != nil {
		e.UI.ShowError(processor.FallbackErrorMessage)
		return err
	}
	target := e.SuccessTarget(resp)
	res, err := client.ConfirmPayment(ctx, resp.PaymentIntentClientSecret, processor.ConfirmParams{ReturnURL: target})
	if err != nil {
		e.Metrics.Outcome(FlowExpress, obs.ResultProcessorError)
		e.UI.ShowError(processor.UserMessage(err))
		return nil
	}
	if res.RequiresAction() {
		// The processor is redirecting through the return URL itself.
		return nil
	}
	e.Metrics.Outcome(FlowExpress, obs.ResultSuccess)
	e.Success(resp)
	return nil
}
