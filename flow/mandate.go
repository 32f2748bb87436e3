package flow

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/ui"
)

// ResponseTypePaymentIntent marks a server response whose confirmation
// is an immediate debit rather than a pure mandate setup.
const ResponseTypePaymentIntent = "payment_intent"

// IBANValidator runs the live IBAN field validation: it reveals the
// additional billing fields when the IBAN's country prefix matches the
// configured pattern and pre-selects the matching country option. It is
// continuously-running UI logic, independent of the payment protocol.
type IBANValidator struct {
	countries []string
	Fields    *ui.FieldGroup
	Country   *ui.CountrySelect
}

// NewIBANValidator builds a validator for a comma-separated list of
// country codes configured on the field.
func NewIBANValidator(pattern string, fields *ui.FieldGroup, country *ui.CountrySelect) *IBANValidator {
	var codes []string
	for _, part := range strings.Split(pattern, ",") {
		if trimmed := strings.ToUpper(strings.TrimSpace(part)); trimmed != "" {
			codes = append(codes, trimmed)
		}
	}
	return &IBANValidator{countries: codes, Fields: fields, Country: country}
}

// OnChange applies the IBAN value to the surface. Re-applying an
// unchanged value performs no additional mutation.
func (v *IBANValidator) OnChange(value string) {
	code := countryPrefix(value)
	if v.matches(code) {
		v.Fields.Reveal()
		if v.Country != nil {
			v.Country.Select(code)
		}
		return
	}
	v.Fields.Hide()
}

func (v *IBANValidator) matches(code string) bool {
	if code == "" {
		return false
	}
	for _, c := range v.countries {
		if c == code {
			return true
		}
	}
	return false
}

func countryPrefix(iban string) string {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
	if len(cleaned) < 2 {
		return ""
	}
	for _, r := range cleaned[:2] {
		if !unicode.IsUpper(r) {
			return ""
		}
	}
	return cleaned[:2]
}

// MandateForm is the submitted bank-debit form: IBAN, account owner and
// whatever additional billing fields the page revealed.
type MandateForm struct {
	IBAN      string
	OwnerName string
	Extra     map[string]string
}

// MandateFlow drives bank-debit mandate setup. The server decides
// whether the mandate needs a setup confirmation or an immediate debit;
// either way the flow finishes with a success acknowledgment.
type MandateFlow struct {
	Engine    *engine.Engine
	Validator *IBANValidator

	guard submitGuard
}

// Setup verifies the processor connection is available for this form.
func (f *MandateFlow) Setup(_ context.Context) error {
	_, err := f.Engine.Processor.Client()
	return err
}

// OnIBANChange feeds a keystroke into the live validation.
func (f *MandateFlow) OnIBANChange(value string) {
	if f.Validator != nil {
		f.Validator.OnChange(value)
	}
}

// Submit runs the mandate protocol. Server and processor faults are
// shown with their own messages; any other failure in the sequence,
// network faults included, surfaces as the generic network-failure
// message rather than raw error text.
func (f *MandateFlow) Submit(ctx context.Context, form MandateForm) error {
	if !f.guard.begin() {
		return ErrSubmissionInFlight
	}
	defer f.guard.end()

	e := f.Engine
	e.UI.Pending()

	if err := f.run(ctx, form); err != nil {
		e.Metrics.Outcome(FlowMandate, obs.ResultNetworkError)
		e.Log.Warn().Err(err).Msg("mandate: submission failed")
		e.UI.ShowError(engine.NetworkFailureMessage)
		return err
	}
	return nil
}

func (f *MandateFlow) run(ctx context.Context, form MandateForm) error {
	e := f.Engine
	resp, err := e.SendPaymentData(ctx, engine.MandateMessage{
		IBAN:      form.IBAN,
		OwnerName: form.OwnerName,
		Extra:     form.Extra,
	})
	if err != nil {
		return err
	}
	if resp.Failed() {
		e.Metrics.Outcome(FlowMandate, obs.ResultServerError)
		e.UI.ShowError(resp.Error)
		return nil
	}

	// A missing secret means no remote confirmation was required.
	if resp.PaymentIntentClientSecret != "" {
		client, err := e.Processor.Client()
		if err != nil {
			return err
		}
		params := processor.ConfirmParams{PaymentMethod: resp.PaymentMethod}
		if resp.Type == ResponseTypePaymentIntent {
			// Immediate debit; keep the method reusable when the
			// server stored a customer for it.
			if resp.Customer {
				params.SetupFutureUsage = processor.SetupFutureUsageOffSession
			}
			_, err = client.ConfirmPayment(ctx, resp.PaymentIntentClientSecret, params)
		} else {
			_, err = client.ConfirmSetup(ctx, resp.PaymentIntentClientSecret, params)
		}
		if err != nil {
			var perr *processor.Error
			if errors.As(err, &perr) {
				e.Metrics.Outcome(FlowMandate, obs.ResultProcessorError)
				e.UI.ShowError(processor.UserMessage(err))
				return nil
			}
			return err
		}
	}

	if _, err := e.SendPaymentData(ctx, engine.SuccessMessage{}); err != nil {
		return err
	}
	e.Metrics.Outcome(FlowMandate, obs.ResultSuccess)
	e.Success(resp)
	return nil
}
