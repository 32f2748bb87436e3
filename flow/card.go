package flow

import (
	"context"
	"fmt"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/ui"
)

// CardFlow drives the card form submission protocol. One-off sessions
// confirm the pre-created intent directly; recurring sessions tokenize
// the card first and let the server decide whether a secondary action
// is needed.
type CardFlow struct {
	Engine *engine.Engine
	// View receives the live card validation display, which runs
	// independently of the submission state machine.
	View *ui.ViewState

	guard submitGuard
}

// Setup verifies the processor connection is available for this form.
func (f *CardFlow) Setup(_ context.Context) error {
	_, err := f.Engine.Processor.Client()
	return err
}

// OnFieldChange mirrors card element change events: a validation
// message replaces any prior one, an empty message clears the display.
func (f *CardFlow) OnFieldChange(message string) {
	if f.View != nil {
		f.View.SetFieldError(message)
	}
}

// Submit runs the card submission state machine to a terminal state.
func (f *CardFlow) Submit(ctx context.Context, card processor.CardDetails) error {
	if !f.guard.begin() {
		return ErrSubmissionInFlight
	}
	defer f.guard.end()

	e := f.Engine
	e.UI.Pending()

	client, err := e.Processor.Client()
	if err != nil {
		e.UI.ShowError(processor.FallbackErrorMessage)
		return err
	}

	if !e.Session.Recurring() {
		// One-off payment with a pre-created intent: confirm it with
		// the collected card.
		params := processor.ConfirmParams{
			Card:       &card,
			Descriptor: e.Session.StatementDescriptor(),
		}
		return f.confirmIntent(ctx, client, e.Session.ClientSecret, params, engine.ProcessingResponse{})
	}

	// Recurring: tokenize into a reusable method with the billing name
	// attached, then hand it to the server.
	res, err := client.CreatePaymentMethod(ctx, card, e.Session.PayerName)
	if err != nil {
		e.Metrics.Outcome(FlowCard, obs.ResultProcessorError)
		e.UI.ShowError(processor.UserMessage(err))
		return err
	}

	resp, err := e.SendPaymentData(ctx, engine.PaymentMethodMessage{PaymentMethodID: res.PaymentMethod.ID})
	if err != nil {
		e.Metrics.Outcome(FlowCard, obs.ResultNetworkError)
		e.UI.ShowError(engine.NetworkFailureMessage)
		return err
	}
	switch {
	case resp.Failed():
		e.Metrics.Outcome(FlowCard, obs.ResultServerError)
		e.UI.ShowError(resp.Error)
		return fmt.Errorf("card: server rejected payment: %s", resp.Error)
	case resp.RequiresAction:
		// The server issued a fresh secret for the secondary action;
		// re-enter confirmation with it, not the original secret.
		return f.confirmIntent(ctx, client, resp.PaymentIntentClientSecret, processor.ConfirmParams{}, resp)
	case resp.Success:
		e.Metrics.Outcome(FlowCard, obs.ResultSuccess)
		e.Success(resp)
		return nil
	default:
		e.Log.Warn().Msg("card: server response carried no outcome")
		e.Metrics.Outcome(FlowCard, obs.ResultUnexpectedStatus)
		e.UI.ShowError(processor.FallbackErrorMessage)
		return fmt.Errorf("card: server response carried no outcome")
	}
}

func (f *CardFlow) confirmIntent(ctx context.Context, client processor.Client, secret string, params processor.ConfirmParams, resp engine.ProcessingResponse) error {
	e := f.Engine
	res, err := client.ConfirmPayment(ctx, secret, params)
	if err != nil {
		e.Metrics.Outcome(FlowCard, obs.ResultProcessorError)
		e.UI.ShowError(processor.UserMessage(err))
		return err
	}
	if res.Succeeded() {
		e.Metrics.Outcome(FlowCard, obs.ResultSuccess)
		e.Success(resp)
		return nil
	}
	// A status other than succeeded with no error. Treated as a
	// failure rather than left pending: the payer can re-submit.
	status := ""
	if res.PaymentIntent != nil {
		status = res.PaymentIntent.Status
	}
	e.Log.Warn().Str("status", status).Msg("card: unexpected intent status after confirmation")
	e.Metrics.Outcome(FlowCard, obs.ResultUnexpectedStatus)
	e.UI.ShowError(processor.FallbackErrorMessage)
	return fmt.Errorf("card: unexpected intent status %q", status)
}
