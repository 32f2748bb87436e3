// Package bootstrap assembles a checkout from configuration and the
// surfaces present on the page: only the flows whose markup exists get
// constructed and bound.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/donare/checkout/config"
	"github.com/donare/checkout/engine"
	"github.com/donare/checkout/events"
	"github.com/donare/checkout/flow"
	"github.com/donare/checkout/obs"
	"github.com/donare/checkout/processor"
	"github.com/donare/checkout/ui"
)

// CardSurface is the card form's page elements.
type CardSurface struct {
	View *ui.ViewState
}

// MandateSurface is the bank-debit form's page elements. CountryPattern
// is the comma-separated country list configured on the IBAN field.
type MandateSurface struct {
	View           *ui.ViewState
	Fields         *ui.FieldGroup
	Country        *ui.CountrySelect
	CountryPattern string
}

// WalletSurface is the platform payment-request button's mount point.
type WalletSurface struct {
	Button *ui.WalletButton
}

// ExpressSurface is the embedded multi-method widget's mount point.
type ExpressSurface struct {
	Widget flow.Widget
}

// Page declares which payment surfaces the embedding page renders. A
// nil surface means the corresponding flow is not constructed.
type Page struct {
	Card    *CardSurface
	Mandate *MandateSurface
	Wallet  *WalletSurface
	Express *ExpressSurface
}

// Checkout is one fully assembled checkout page: the engine plus the
// flows bound to the page's surfaces.
type Checkout struct {
	Engine  *engine.Engine
	Bus     *events.Bus
	Card    *flow.CardFlow
	Mandate *flow.MandateFlow
	Wallet  *flow.RequestButtonFlow
	Express *flow.ExpressFlow
}

// Options customize engine assembly beyond the loaded configuration.
type Options struct {
	// Dialer overrides the processor connection, mainly for tests.
	Dialer processor.Dialer
	// Registry receives the flow metrics; nil uses the default registerer.
	Registry prometheus.Registerer
	// Bus overrides the page event bus; nil creates a fresh one.
	Bus *events.Bus
}

// New builds the engine and event bus from configuration.
func New(cfg *config.Config, opts Options) (*Checkout, error) {
	s := cfg.Session()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	dial := opts.Dialer
	if dial == nil {
		brands := cfg.WalletBrands
		dial = func(_ context.Context, publicKey string) (processor.Client, error) {
			return processor.NewStripeClient(publicKey, brands...)
		}
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus()
	}

	eng := &engine.Engine{
		Session:   s,
		Processor: processor.NewHandle(s.ProcessorPublicKey, dial),
		HTTP:      engine.NewHTTPClient(),
		Log:       obs.NewLogger(cfg.LogFormat, cfg.LogLevel),
		Metrics:   obs.NewFlowMetrics(cfg.MetricsNamespace, opts.Registry),
	}
	return &Checkout{Engine: eng, Bus: bus}, nil
}

// Bind constructs the flows for the surfaces the page declares,
// initializes the engine and runs every flow's setup. The engine's UI
// adapter is taken from the first form surface present.
func (c *Checkout) Bind(ctx context.Context, page Page, nav engine.Navigator) error {
	c.Engine.Nav = nav
	c.Engine.UI = pageUIAdapter(page)

	if err := c.Engine.Initialize(ctx); err != nil {
		return err
	}

	var handlers []flow.Handler
	if page.Card != nil {
		c.Card = &flow.CardFlow{Engine: c.Engine, View: page.Card.View}
		handlers = append(handlers, c.Card)
	}
	if page.Mandate != nil {
		c.Mandate = &flow.MandateFlow{
			Engine:    c.Engine,
			Validator: flow.NewIBANValidator(page.Mandate.CountryPattern, page.Mandate.Fields, page.Mandate.Country),
		}
		handlers = append(handlers, c.Mandate)
	}
	if page.Wallet != nil {
		c.Wallet = &flow.RequestButtonFlow{Engine: c.Engine, Button: page.Wallet.Button}
		handlers = append(handlers, c.Wallet)
	}
	if page.Express != nil {
		c.Express = flow.NewExpressFlow(c.Engine, c.Bus, page.Express.Widget)
		handlers = append(handlers, c.Express)
	}

	for _, h := range handlers {
		if err := h.Setup(ctx); err != nil {
			return fmt.Errorf("bootstrap: flow setup: %w", err)
		}
	}
	return nil
}

// Run is the one-call assembly: load a session from cfg, bind the page
// and return the ready checkout.
func Run(ctx context.Context, cfg *config.Config, page Page, nav engine.Navigator, opts Options) (*Checkout, error) {
	c, err := New(cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Bind(ctx, page, nav); err != nil {
		return nil, err
	}
	return c, nil
}

// pageUIAdapter picks the engine's progress surface: the card form's
// full-page adapter when present, the mandate form's inline adapter
// otherwise, and a detached surface when the page has neither form.
func pageUIAdapter(page Page) ui.Adapter {
	switch {
	case page.Card != nil:
		return ui.PageAdapter{View: page.Card.View}
	case page.Mandate != nil:
		return ui.InlineAdapter{View: page.Mandate.View}
	default:
		return ui.PageAdapter{View: ui.NewViewState()}
	}
}
