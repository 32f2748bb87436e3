// Package engine owns one checkout attempt: the session snapshot, the
// processor handle and the UI adapter, plus the server round-trip and
// the terminal success redirect.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"context"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/session"
	"github.com/donare/checkout/ui"
)

// NetworkFailureMessage is the only message shown for transport faults;
// raw transport errors never reach the payer.
const NetworkFailureMessage = "Network failure."

// ErrNetworkFailure marks a transport fault during a server round-trip.
var ErrNetworkFailure = errors.New("network failure")

// Navigator performs the terminal browser transitions.
type Navigator interface {
	// GoTo navigates to the success target, ending the session.
	GoTo(url string)
	// Reload restarts the whole page after a fatal environment fault.
	Reload()
}

// Engine coordinates one checkout page load.
type Engine struct {
	Session   session.Session
	Processor *processor.Handle
	UI        ui.Adapter
	Nav       Navigator
	HTTP      *resty.Client
	Log       zerolog.Logger
	Metrics   *obs.FlowMetrics
}

// NewHTTPClient builds the outbound client used for server round-trips,
// with the tracing transport attached.
func NewHTTPClient() *resty.Client {
	return resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// Initialize suspends the UI, connects the processor SDK and prepares
// the elements factory. An SDK load failure is a non-recoverable
// environment fault: the page is reloaded.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.Processor == nil || e.UI == nil {
		return errors.New("engine: not configured")
	}
	e.UI.Pending()
	if err := e.Processor.Connect(ctx); err != nil {
		e.Log.Error().Err(err).Msg("processor sdk failed to load")
		if e.Nav != nil {
			e.Nav.Reload()
		}
		return fmt.Errorf("engine: initialize: %w", err)
	}
	s := e.Session
	e.Processor.Elements(processor.ElementsConfig{
		Locale:   s.Locale,
		Mode:     s.Mode(),
		Amount:   s.Amount,
		Currency: s.Currency,
	})
	e.UI.Ready()
	return nil
}

// SendPaymentData posts one payment message to the server's action URL
// and decodes the processing response. Transport faults of any kind are
// replaced with ErrNetworkFailure so callers always have a displayable
// message.
func (e *Engine) SendPaymentData(ctx context.Context, msg PaymentMessage) (ProcessingResponse, error) {
	var zero ProcessingResponse
	ctx, span := otel.Tracer("checkout.Engine").Start(ctx, "Engine.SendPaymentData")
	defer span.End()
	kind := msg.kind()
	span.SetAttributes(attribute.String("checkout.message", kind))

	start := time.Now()
	defer func() {
		e.Metrics.ObserveRoundTrip(kind, obs.DurationMillis(time.Since(start)))
	}()

	resp, err := e.HTTP.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(msg).
		Post(e.Session.ActionURL)
	if err != nil {
		span.RecordError(err)
		e.Log.Warn().Err(err).Str("message", kind).Msg("payment data request failed")
		return zero, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		e.Log.Warn().Int("status", resp.StatusCode()).Str("message", kind).Msg("payment data request rejected")
		return zero, fmt.Errorf("%w: unexpected status %d", ErrNetworkFailure, resp.StatusCode())
	}
	var out ProcessingResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("%w: malformed response", ErrNetworkFailure)
	}
	span.SetAttributes(
		attribute.Bool("checkout.requires_action", out.RequiresAction),
		attribute.Bool("checkout.server_error", out.Failed()),
	)
	return out, nil
}

// Success navigates to the configured success URL, honoring a
// server-provided override. This is the only non-error terminal
// transition of a checkout attempt.
func (e *Engine) Success(resp ProcessingResponse) {
	target := resp.SuccessURL
	if target == "" {
		target = e.Session.SuccessURL
	}
	e.Log.Info().Str("url", target).Msg("payment succeeded")
	if e.UI != nil {
		e.UI.Ready()
	}
	if e.Nav != nil {
		e.Nav.GoTo(target)
	}
}

// SuccessTarget resolves the redirect target without navigating, for
// flows that hand the URL to the processor as a return URL.
func (e *Engine) SuccessTarget(resp ProcessingResponse) string {
	if resp.SuccessURL != "" {
		return resp.SuccessURL
	}
	return e.Session.SuccessURL
}
