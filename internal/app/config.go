package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/nilecart/internal/domain/money"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (NILECART_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (NILECART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (NILECART_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Checkout     CheckoutConfig
	Currency     CurrencyConfig
	Session      SessionConfig
	Redis        RedisConfig
	AMQP         AMQPConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// CheckoutConfig configures the WhatsApp hand-off.
type CheckoutConfig struct {
	WhatsAppNumber string `default:"211900000000" usage:"Merchant WhatsApp number in international format" flag:"whatsapp-number"`
}

// CurrencyConfig configures local-currency display.
type CurrencyConfig struct {
	// LocalPerUSD defaults to money.DefaultLocalPerUSD when empty.
	LocalPerUSD string `default:"" usage:"Local currency units per US dollar" flag:"local-per-usd"`
}

// SessionConfig controls cart sessions.
type SessionConfig struct {
	TTL          time.Duration `default:"168h" usage:"Idle cart session lifetime"`
	CookieSecure bool          `default:"false" usage:"Mark the session cookie Secure" flag:"session-cookie-secure"`
	// CleanupInterval applies to the in-memory store only.
	CleanupInterval time.Duration `default:"10m" usage:"Interval between idle session sweeps"`
}

// RedisConfig selects the Redis session store when Addr is set.
type RedisConfig struct {
	Addr     string `default:"" usage:"Redis address; in-memory sessions when empty" flag:"redis-addr"`
	Password string `default:"" usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database number"`
}

// AMQPConfig enables checkout event publishing when URL is set.
type AMQPConfig struct {
	URL string `default:"" usage:"RabbitMQ URL; events are dropped when empty" flag:"amqp-url"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	RPS   float64 `default:"10" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "NILECART",
		// seed-db reads NILECART_SEED_* from the same environment.
		AllowUnknownEnvs: true,
		Files:            []string{"config.yaml", "/etc/nilecart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set NILECART_DATABASE_URL or DATABASE_URL")
	}
	rate, err := c.Currency.Rate()
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return errors.Errorf("currency rate must be positive, got %s", rate)
	}
	if c.Checkout.WhatsAppNumber == "" {
		return errors.New("checkout WhatsApp number is required")
	}
	return nil
}

// Rate parses LocalPerUSD.
func (c CurrencyConfig) Rate() (decimal.Decimal, error) {
	if c.LocalPerUSD == "" {
		return money.DefaultLocalPerUSD, nil
	}
	rate, err := decimal.NewFromString(c.LocalPerUSD)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse currency rate %q", c.LocalPerUSD)
	}
	return rate, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NILECART_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
