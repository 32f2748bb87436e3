package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/session"
	"github.com/donare/checkout/ui"
)

type fakeNav struct {
	mu      sync.Mutex
	gotos   []string
	reloads int
}

func (n *fakeNav) GoTo(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gotos = append(n.gotos, url)
}

func (n *fakeNav) Reload() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reloads++
}

type nopClient struct{}

func (nopClient) ConfirmPayment(context.Context, string, processor.ConfirmParams) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{}, nil
}

func (nopClient) ConfirmSetup(context.Context, string, processor.ConfirmParams) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{}, nil
}

func (nopClient) CreatePaymentMethod(context.Context, processor.CardDetails, string) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{}, nil
}

func (nopClient) CanMakePayment(context.Context) (bool, error) { return false, nil }

func testSession(actionURL string) session.Session {
	return session.Session{
		ProcessorPublicKey: "pk_test",
		Locale:             "de",
		Country:            "DE",
		Amount:             1500,
		Currency:           "EUR",
		Label:              "Donation",
		SuccessURL:         "https://example.org/thanks",
		ActionURL:          actionURL,
		SiteName:           "Example",
	}
}

func newEngine(actionURL string, view *ui.ViewState, nav *fakeNav) *engine.Engine {
	handle := processor.NewHandle("pk_test", func(context.Context, string) (processor.Client, error) {
		return nopClient{}, nil
	})
	return &engine.Engine{
		Session:   testSession(actionURL),
		Processor: handle,
		UI:        ui.PageAdapter{View: view},
		Nav:       nav,
		HTTP:      engine.NewHTTPClient(),
		Log:       zerolog.Nop(),
	}
}

func TestInitializeClearsPending(t *testing.T) {
	view := ui.NewViewState()
	nav := &fakeNav{}
	eng := newEngine("https://example.org/pay/", view, nav)

	require.NoError(t, eng.Initialize(context.Background()))
	require.False(t, view.Pending())
	require.Zero(t, nav.reloads)
}

func TestInitializeSDKFailureReloads(t *testing.T) {
	view := ui.NewViewState()
	nav := &fakeNav{}
	boom := errors.New("script blocked")
	eng := newEngine("https://example.org/pay/", view, nav)
	eng.Processor = processor.NewHandle("pk_test", func(context.Context, string) (processor.Client, error) {
		return nil, boom
	})

	err := eng.Initialize(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, nav.reloads)
}

func TestSendPaymentDataHeadersAndBody(t *testing.T) {
	var gotHeader http.Header
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	eng := newEngine(srv.URL, ui.NewViewState(), &fakeNav{})
	resp, err := eng.SendPaymentData(context.Background(), engine.PaymentMethodMessage{PaymentMethodID: "pm_123"})
	require.NoError(t, err)
	require.True(t, resp.Success)

	require.Equal(t, "XMLHttpRequest", gotHeader.Get("X-Requested-With"))
	require.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	require.NotEmpty(t, gotHeader.Get("Idempotency-Key"))
	require.Equal(t, "pm_123", gotBody["payment_method_id"])
}

func TestSendPaymentDataNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	eng := newEngine(srv.URL, ui.NewViewState(), &fakeNav{})
	_, err := eng.SendPaymentData(context.Background(), engine.SuccessMessage{})
	require.ErrorIs(t, err, engine.ErrNetworkFailure)
}

func TestSendPaymentDataServerStatusFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	eng := newEngine(srv.URL, ui.NewViewState(), &fakeNav{})
	_, err := eng.SendPaymentData(context.Background(), engine.SuccessMessage{})
	require.ErrorIs(t, err, engine.ErrNetworkFailure)
}

func TestSendPaymentDataMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer srv.Close()

	eng := newEngine(srv.URL, ui.NewViewState(), &fakeNav{})
	_, err := eng.SendPaymentData(context.Background(), engine.SuccessMessage{})
	require.ErrorIs(t, err, engine.ErrNetworkFailure)
}

func TestSuccessUsesServerOverride(t *testing.T) {
	nav := &fakeNav{}
	eng := newEngine("https://example.org/pay/", ui.NewViewState(), nav)

	eng.Success(engine.ProcessingResponse{})
	eng.Success(engine.ProcessingResponse{SuccessURL: "https://example.org/override"})

	require.Equal(t, []string{"https://example.org/thanks", "https://example.org/override"}, nav.gotos)
}

func TestMessageShapes(t *testing.T) {
	ack, err := json.Marshal(engine.SuccessMessage{})
	require.NoError(t, err)
	require.JSONEq(t, `{"success":true}`, string(ack))

	mandate, err := json.Marshal(engine.MandateMessage{
		IBAN:      "DE89370400440532013000",
		OwnerName: "Ada Lovelace",
		Extra:     map[string]string{"city": "Berlin"},
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"iban":"DE89370400440532013000","owner_name":"Ada Lovelace","city":"Berlin"}`, string(mandate))

	quick, err := json.Marshal(engine.QuickPaymentMessage{Amount: 2500, Currency: "EUR", Interval: 1, Name: "Ada", Email: "ada@example.org"})
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(quick, &decoded))
	require.Equal(t, "quickpayment", decoded["type"])
}
