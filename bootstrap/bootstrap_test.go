package bootstrap_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/donare/checkout/bootstrap"
	"github.com/donare/checkout/config"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/ui"
)

type noopClient struct{}

func (noopClient) ConfirmPayment(context.Context, string, processor.ConfirmParams) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{}, nil
}

func (noopClient) ConfirmSetup(context.Context, string, processor.ConfirmParams) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{}, nil
}

func (noopClient) CreatePaymentMethod(context.Context, processor.CardDetails, string) (processor.ConfirmationResult, error) {
	return processor.ConfirmationResult{PaymentMethod: &processor.MethodRef{ID: "pm_noop"}}, nil
}

func (noopClient) CanMakePayment(context.Context) (bool, error) { return true, nil }

type noopNav struct{}

func (noopNav) GoTo(string) {}
func (noopNav) Reload()     {}

type noopWidget struct{}

func (noopWidget) Reveal() {}
func (noopWidget) Fail()   {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadForTests(map[string]string{
		"CHECKOUT_PUBLIC_KEY":  "pk_test_123",
		"CHECKOUT_AMOUNT":      "1500",
		"CHECKOUT_SUCCESS_URL": "https://example.org/thanks",
		"CHECKOUT_ACTION_URL":  "https://example.org/donate",
		"CHECKOUT_LOCALE":      "de",
	})
	require.NoError(t, err)
	return cfg
}

func testOptions() bootstrap.Options {
	return bootstrap.Options{
		Dialer:   func(context.Context, string) (processor.Client, error) { return noopClient{}, nil },
		Registry: prometheus.NewRegistry(),
	}
}

func TestRunBindsDeclaredSurfacesOnly(t *testing.T) {
	page := bootstrap.Page{
		Card:   &bootstrap.CardSurface{View: ui.NewViewState()},
		Wallet: &bootstrap.WalletSurface{Button: &ui.WalletButton{}},
	}

	c, err := bootstrap.Run(context.Background(), testConfig(t), page, noopNav{}, testOptions())
	require.NoError(t, err)

	require.NotNil(t, c.Card)
	require.NotNil(t, c.Wallet)
	require.Nil(t, c.Mandate)
	require.Nil(t, c.Express)
	require.True(t, page.Wallet.Button.Visible(), "wallet setup ran and revealed the button")
	require.False(t, page.Card.View.Pending(), "engine initialization left the surface ready")
}

func TestRunMandateAndExpress(t *testing.T) {
	page := bootstrap.Page{
		Mandate: &bootstrap.MandateSurface{
			View:           ui.NewViewState(),
			Fields:         &ui.FieldGroup{},
			Country:        ui.NewCountrySelect("DE", "AT"),
			CountryPattern: "DE,AT",
		},
		Express: &bootstrap.ExpressSurface{Widget: noopWidget{}},
	}

	c, err := bootstrap.Run(context.Background(), testConfig(t), page, noopNav{}, testOptions())
	require.NoError(t, err)

	require.NotNil(t, c.Mandate)
	require.NotNil(t, c.Express)
	require.Nil(t, c.Card)

	c.Mandate.OnIBANChange("AT611904300234573201")
	require.True(t, page.Mandate.Fields.Visible())
	require.Equal(t, "AT", page.Mandate.Country.Selected())
}

func TestNewRejectsInvalidSession(t *testing.T) {
	cfg := testConfig(t)
	cfg.Currency = "EURO" // not an ISO 4217 code

	_, err := bootstrap.New(cfg, testOptions())
	require.Error(t, err)
}

func TestRunElementsMatchSessionMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Interval = 1

	c, err := bootstrap.Run(context.Background(), cfg, bootstrap.Page{}, noopNav{}, testOptions())
	require.NoError(t, err)

	elems := c.Engine.Processor.Elements(processor.ElementsConfig{
		Locale: "de", Mode: c.Engine.Session.Mode(),
	})
	require.Equal(t, int64(1500), elems.Config().Amount)
	require.Equal(t, "EUR", elems.Config().Currency)
}
