package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config is loaded from SARIT_* environment variables, flags and YAML files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SARIT_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// RedisURL enables checkout idempotency when set.
	RedisURL string `usage:"Redis URL for checkout idempotency (SARIT_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	// AMQPURL enables RabbitMQ mail delivery; without it notifications are only logged.
	AMQPURL      string `usage:"RabbitMQ URL for notifications (SARIT_AMQP_URL or AMQP_URL)" flag:"amqp-url"`
	APIKeyPepper string `env:"API_KEY_PEPPER" usage:"HMAC pepper for admin API key hashing" flag:"api-key-pepper"`
	BodyLimit    int64  `default:"5242880" usage:"Maximum request body size in bytes" flag:"body-limit"`
	JWT          JWTConfig
	Notify       NotifyConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// JWTConfig verifies customer bearer tokens. An empty secret disables them.
type JWTConfig struct {
	Secret string `usage:"HS256 secret shared with the login service" flag:"jwt-secret"`
	Issuer string `default:"sarit" usage:"Expected token issuer" flag:"jwt-issuer"`
}

// NotifyConfig controls the notification queue.
type NotifyConfig struct {
	QueueSize int    `default:"256" usage:"Buffered notifications before new ones are dropped" flag:"notify-queue"`
	Exchange  string `default:"notifications" usage:"RabbitMQ topic exchange for mail events" flag:"notify-exchange"`
	// ContactInbox receives a copy of every contact form message.
	ContactInbox string `usage:"Address that receives contact form messages, empty to skip" flag:"contact-inbox"`
}

// IdempotencyConfig controls how long checkout responses are replayable.
type IdempotencyConfig struct {
	TTL time.Duration `default:"24h" usage:"Checkout replay window" flag:"idempotency-ttl"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s" usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads the configuration and applies platform fallbacks.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SARIT",
		Files:     []string{"config.yaml", "/etc/sarit/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults falls back to the unprefixed variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.RedisURL, "REDIS_URL")
	fallback(&c.AMQPURL, "AMQP_URL")
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set SARIT_DATABASE_URL or DATABASE_URL")
	}
	if c.APIKeyPepper == "" {
		return errors.New("api key pepper is required: set SARIT_API_KEY_PEPPER")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}
