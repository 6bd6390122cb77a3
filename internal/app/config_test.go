package app

import (
	"testing"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nilecart/internal/domain/money"
)

func testLoader() aconfig.Config {
	return aconfig.Config{
		EnvPrefix:        "NILECART",
		AllowUnknownEnvs: true,
		SkipFiles:        true,
		SkipFlags:        true,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NILECART_DATABASE_URL", "postgres://localhost/nilecart")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "211900000000", cfg.Checkout.WhatsAppNumber)
	assert.Equal(t, "168h0m0s", cfg.Session.TTL.String())
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Empty(t, cfg.Redis.Addr)

	rate, err := cfg.Currency.Rate()
	require.NoError(t, err)
	assert.True(t, money.DefaultLocalPerUSD.Equal(rate), rate.String())
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	t.Setenv("NILECART_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseURL: "postgres://x",
			Checkout:    CheckoutConfig{WhatsAppNumber: "211900000000"},
			Currency:    CurrencyConfig{LocalPerUSD: "667"},
		}
	}
	require.NoError(t, func() error { c := valid(); return c.validate() }())

	for _, tt := range []struct {
		name   string
		mutate func(c *Config)
	}{
		{"NoDatabase", func(c *Config) { c.DatabaseURL = "" }},
		{"BadRate", func(c *Config) { c.Currency.LocalPerUSD = "abc" }},
		{"ZeroRate", func(c *Config) { c.Currency.LocalPerUSD = "0" }},
		{"NoNumber", func(c *Config) { c.Checkout.WhatsAppNumber = "" }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			require.Error(t, c.validate())
		})
	}
}
