// Package config loads the checkout configuration from the environment.
// The server normally injects these values into the page context; for
// embedded and test deployments they come from CHECKOUT_* variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/donare/checkout/session"
)

// Config holds checkout configuration loaded from the environment.
type Config struct {
	ProcessorPublicKey string
	ClientSecret       string
	Locale             string
	Country            string
	Amount             int64
	Currency           string
	Label              string
	SuccessURL         string
	ActionURL          string
	SiteName           string
	PayerName          string
	IsDonation         bool
	Interval           int
	WalletBrands       []string
	LogLevel           string
	LogFormat          string
	MetricsNamespace   string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		ProcessorPublicKey: k.String("CHECKOUT_PUBLIC_KEY"),
		ClientSecret:       k.String("CHECKOUT_CLIENT_SECRET"),
		Locale:             valueOrDefault(k.String("CHECKOUT_LOCALE"), "en"),
		Country:            valueOrDefault(k.String("CHECKOUT_COUNTRY"), "DE"),
		Amount:             parseInt64(k.String("CHECKOUT_AMOUNT")),
		Currency:           valueOrDefault(k.String("CHECKOUT_CURRENCY"), "EUR"),
		Label:              k.String("CHECKOUT_LABEL"),
		SuccessURL:         k.String("CHECKOUT_SUCCESS_URL"),
		ActionURL:          k.String("CHECKOUT_ACTION_URL"),
		SiteName:           k.String("CHECKOUT_SITE_NAME"),
		PayerName:          k.String("CHECKOUT_PAYER_NAME"),
		IsDonation:         parseBool(k.String("CHECKOUT_IS_DONATION")),
		Interval:           int(parseInt64(k.String("CHECKOUT_INTERVAL"))),
		WalletBrands:       splitAndTrim(k.String("CHECKOUT_WALLET_BRANDS")),
		LogLevel:           valueOrDefault(k.String("CHECKOUT_LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("CHECKOUT_LOG_FORMAT"), "json"),
		MetricsNamespace:   valueOrDefault(k.String("CHECKOUT_METRICS_NAMESPACE"), "checkout"),
	}

	if cfg.ProcessorPublicKey == "" {
		return nil, errors.New("CHECKOUT_PUBLIC_KEY is required")
	}
	if cfg.SuccessURL == "" {
		return nil, errors.New("CHECKOUT_SUCCESS_URL is required")
	}
	if cfg.ActionURL == "" {
		return nil, errors.New("CHECKOUT_ACTION_URL is required")
	}
	if cfg.Amount <= 0 {
		return nil, errors.New("CHECKOUT_AMOUNT must be a positive integer of minor units")
	}

	return cfg, nil
}

// Session builds the immutable checkout snapshot from the loaded values.
func (c *Config) Session() session.Session {
	return session.Session{
		ProcessorPublicKey: c.ProcessorPublicKey,
		ClientSecret:       c.ClientSecret,
		Locale:             c.Locale,
		Country:            c.Country,
		Amount:             c.Amount,
		Currency:           c.Currency,
		Label:              c.Label,
		SuccessURL:         c.SuccessURL,
		PayerName:          c.PayerName,
		IsDonation:         c.IsDonation,
		Interval:           c.Interval,
		ActionURL:          c.ActionURL,
		SiteName:           c.SiteName,
	}
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseInt64(value string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
