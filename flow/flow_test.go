package flow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/session"
	"github.com/donare/checkout/ui"
)

type confirmCall struct {
	secret string
	params processor.ConfirmParams
}

// stubClient scripts processor behavior and records every call.
type stubClient struct {
	mu sync.Mutex

	confirmPayment func(secret string, params processor.ConfirmParams) (processor.ConfirmationResult, error)
	confirmSetup   func(secret string, params processor.ConfirmParams) (processor.ConfirmationResult, error)
	createMethod   func(card processor.CardDetails, billingName string) (processor.ConfirmationResult, error)
	canPay         bool

	paymentCalls []confirmCall
	setupCalls   []confirmCall
	methodCalls  int
}

func succeededIntent(secret string) processor.ConfirmationResult {
	return processor.ConfirmationResult{PaymentIntent: &processor.IntentState{
		ID: "pi_stub", Status: processor.StatusSucceeded, ClientSecret: secret,
	}}
}

func (s *stubClient) ConfirmPayment(_ context.Context, secret string, params processor.ConfirmParams) (processor.ConfirmationResult, error) {
	s.mu.Lock()
	s.paymentCalls = append(s.paymentCalls, confirmCall{secret: secret, params: params})
	fn := s.confirmPayment
	s.mu.Unlock()
	if fn != nil {
		return fn(secret, params)
	}
	return succeededIntent(secret), nil
}

func (s *stubClient) ConfirmSetup(_ context.Context, secret string, params processor.ConfirmParams) (processor.ConfirmationResult, error) {
	s.mu.Lock()
	s.setupCalls = append(s.setupCalls, confirmCall{secret: secret, params: params})
	fn := s.confirmSetup
	s.mu.Unlock()
	if fn != nil {
		return fn(secret, params)
	}
	return processor.ConfirmationResult{SetupIntent: &processor.IntentState{
		ID: "seti_stub", Status: processor.StatusSucceeded,
	}}, nil
}

func (s *stubClient) CreatePaymentMethod(_ context.Context, card processor.CardDetails, billingName string) (processor.ConfirmationResult, error) {
	s.mu.Lock()
	s.methodCalls++
	fn := s.createMethod
	s.mu.Unlock()
	if fn != nil {
		return fn(card, billingName)
	}
	return processor.ConfirmationResult{PaymentMethod: &processor.MethodRef{ID: "pm_stub"}}, nil
}

func (s *stubClient) CanMakePayment(context.Context) (bool, error) {
	return s.canPay, nil
}

func (s *stubClient) payments() []confirmCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]confirmCall(nil), s.paymentCalls...)
}

func (s *stubClient) setups() []confirmCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]confirmCall(nil), s.setupCalls...)
}

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

func (n *fakeNav) targets() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.gotos...)
}

// recordedRequest is one captured server round-trip body.
type recordedRequest struct {
	Body map[string]any
}

// fakeServer captures payment messages and replies from a scripted queue;
// the last reply repeats once the queue is exhausted.
type fakeServer struct {
	mu       sync.Mutex
	replies  []string
	requests []recordedRequest
	srv      *httptest.Server
}

func newFakeServer(t *testing.T, replies ...string) *fakeServer {
	t.Helper()
	if len(replies) == 0 {
		replies = []string{`{}`}
	}
	f := &fakeServer{replies: replies}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Body: body})
		reply := f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

type testRig struct {
	engine *engine.Engine
	client *stubClient
	view   *ui.ViewState
	nav    *fakeNav
	server *fakeServer
}

func newRig(t *testing.T, interval int, clientSecret string, replies ...string) *testRig {
	t.Helper()
	server := newFakeServer(t, replies...)
	client := &stubClient{}
	view := ui.NewViewState()
	nav := &fakeNav{}
	handle := processor.NewHandle("pk_test", func(context.Context, string) (processor.Client, error) {
		return client, nil
	})
	eng := &engine.Engine{
		Session: session.Session{
			ProcessorPublicKey: "pk_test",
			ClientSecret:       clientSecret,
			Locale:             "de",
			Country:            "DE",
			Amount:             1500,
			Currency:           "EUR",
			Label:              "Donation",
			SuccessURL:         "https://example.org/thanks",
			ActionURL:          server.srv.URL,
			SiteName:           "Example",
			Interval:           interval,
		},
		Processor: handle,
		UI:        ui.PageAdapter{View: view},
		Nav:       nav,
		HTTP:      engine.NewHTTPClient(),
		Log:       zerolog.Nop(),
	}
	if err := eng.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return &testRig{engine: eng, client: client, view: view, nav: nav, server: server}
}
