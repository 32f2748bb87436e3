package flow

import (
	"context"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/ui"
)

// Sheet completion statuses reported back to the platform's native UI.
const (
	SheetSuccess = "success"
	SheetFail    = "fail"
)

// SheetCompleter closes the platform's native payment sheet. Complete
// must be invoked exactly once per payment attempt, and only after the
// outcome is known.
type SheetCompleter interface {
	Complete(status string)
}

// sheetOnce guards the exactly-once completion invariant.
type sheetOnce struct {
	sheet SheetCompleter
	done  bool
}

func (s *sheetOnce) complete(status string) {
	if s.done || s.sheet == nil {
		return
	}
	s.done = true
	s.sheet.Complete(status)
}

// RequestButtonFlow drives the platform wallet button. The button is
// only revealed when the processor reports the capability as available
// for the current device.
type RequestButtonFlow struct {
	Engine *engine.Engine
	Button *ui.WalletButton

	guard submitGuard
}

// Setup gates button visibility on the asynchronous capability check.
func (f *RequestButtonFlow) Setup(ctx context.Context) error {
	client, err := f.Engine.Processor.Client()
	if err != nil {
		return err
	}
	available, err := client.CanMakePayment(ctx)
	if err != nil {
		return err
	}
	if available && f.Button != nil {
		f.Button.Reveal()
	}
	return nil
}

// OnPaymentMethod handles a payment-method selection from the native
// sheet and runs the flow to a terminal state.
func (f *RequestButtonFlow) OnPaymentMethod(ctx context.Context, methodID string, sheet SheetCompleter) error {
	if !f.guard.begin() {
		return ErrSubmissionInFlight
	}
	defer f.guard.end()

	once := &sheetOnce{sheet: sheet}
	e := f.Engine
	e.UI.Pending()

	client, err := e.Processor.Client()
	if err != nil {
		once.complete(SheetFail)
		e.UI.ShowError(processor.FallbackErrorMessage)
		return err
	}

	if e.Session.Recurring() {
		return f.recurring(ctx, client, methodID, once)
	}
	return f.oneOff(ctx, client, methodID, once)
}

func (f *RequestButtonFlow) recurring(ctx context.Context, client processor.Client, methodID string, once *sheetOnce) error {
	e := f.Engine
	resp, err := e.SendPaymentData(ctx, engine.PaymentMethodMessage{PaymentMethodID: methodID})
	if err != nil {
		e.Metrics.Outcome(FlowWallet, obs.ResultNetworkError)
		once.complete(SheetFail)
		e.UI.ShowError(engine.NetworkFailureMessage)
		return err
	}
	if resp.Failed() {
		e.Metrics.Outcome(FlowWallet, obs.ResultServerError)
		once.complete(SheetFail)
		e.UI.ShowError(resp.Error)
		return nil
	}
	if resp.RequiresAction {
		res, err := client.ConfirmPayment(ctx, resp.PaymentIntentClientSecret, processor.ConfirmParams{})
		if err != nil {
			e.Metrics.Outcome(FlowWallet, obs.ResultProcessorError)
			once.complete(SheetFail)
			e.UI.ShowError(processor.UserMessage(err))
			return nil
		}
		if !res.Succeeded() {
			e.Metrics.Outcome(FlowWallet, obs.ResultUnexpectedStatus)
			once.complete(SheetFail)
			e.UI.ShowError(processor.FallbackErrorMessage)
			return nil
		}
	}
	once.complete(SheetSuccess)
	e.Metrics.Outcome(FlowWallet, obs.ResultSuccess)
	e.Success(resp)
	return nil
}

func (f *RequestButtonFlow) oneOff(ctx context.Context, client processor.Client, methodID string, once *sheetOnce) error {
	e := f.Engine
	res, err := client.ConfirmPayment(ctx, e.Session.ClientSecret, processor.ConfirmParams{
		PaymentMethod: methodID,
		Descriptor:    e.Session.StatementDescriptor(),
	})
	if err != nil {
		e.Metrics.Outcome(FlowWallet, obs.ResultProcessorError)
		once.complete(SheetFail)
		e.UI.ShowError(processor.UserMessage(err))
		return nil
	}
	// The sheet can close: the confirm call resolved. Any secondary
	// action continues outside the native UI.
	once.complete(SheetSuccess)

	if res.RequiresAction() {
		if _, err := client.ConfirmPayment(ctx, e.Session.ClientSecret, processor.ConfirmParams{}); err != nil {
			e.Metrics.Outcome(FlowWallet, obs.ResultProcessorError)
			e.UI.ShowError(processor.UserMessage(err))
			return nil
		}
	}
	e.Metrics.Outcome(FlowWallet, obs.ResultSuccess)
	e.Success(engine.ProcessingResponse{})
	return nil
}
