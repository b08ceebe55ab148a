// Package config loads the service configuration: defaults, then an
// optional YAML file, then an optional .env file, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNone     = "none"

	ProviderStripe = "stripe"
	ProviderMock   = "mock"

	VerifyProvider = "provider"
	VerifyRedirect = "redirect"
)

type Config struct {
	ServiceName string `yaml:"service_name"`
	HTTPAddr    string `yaml:"http_addr"`
	GRPCAddr    string `yaml:"grpc_addr"`

	Store struct {
		Backend    string `yaml:"backend"`
		MongoURI   string `yaml:"mongo_uri"`
		MongoDB    string `yaml:"mongo_db"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"store"`

	SagaLog struct {
		Backend     string `yaml:"backend"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"saga_log"`

	RedisAddr   string `yaml:"redis_addr"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		AdminRole string `yaml:"admin_role"`
	} `yaml:"auth"`

	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`

	CORSOrigins []string `yaml:"cors_origins"`
	FrontendURL string   `yaml:"frontend_url"`

	UserService struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"user_service"`

	Payment struct {
		Provider       string        `yaml:"provider"`
		StripeKey      string        `yaml:"stripe_key"`
		Currency       string        `yaml:"currency"`
		DeliveryCharge int64         `yaml:"delivery_charge"`
		VerifyMode     string        `yaml:"verify_mode"`
		MockBaseURL    string        `yaml:"mock_base_url"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"payment"`

	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	c := &Config{
		ServiceName: "order-service",
		HTTPAddr:    ":4004",
		GRPCAddr:    ":9090",
		RedisAddr:   "",
		CORSOrigins: []string{"*"},
		FrontendURL: "http://localhost:3000",
	}
	c.Store.Backend = BackendSQLite
	c.Store.MongoURI = "mongodb://localhost:27017"
	c.Store.MongoDB = "food-del"
	c.Store.SQLitePath = "./data/orders.db"
	c.SagaLog.Backend = BackendSQLite
	c.SagaLog.SQLitePath = "./data/saga.db"
	c.Auth.AdminRole = "admin"
	c.RateLimit.RPS = 5
	c.RateLimit.Burst = 10
	c.UserService.URL = "http://localhost:4000/api/user"
	c.UserService.Timeout = 5 * time.Second
	c.Payment.Provider = ProviderMock
	c.Payment.Currency = "inr"
	c.Payment.DeliveryCharge = 10000
	c.Payment.VerifyMode = VerifyProvider
	c.Payment.MockBaseURL = "http://localhost:4004/mock-pay"
	c.Payment.Timeout = 15 * time.Second
	c.IdempotencyTTL = 24 * time.Hour
	return c
}

// Load builds the configuration. path may be empty; a missing .env is fine.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("OTEL_SERVICE_NAME", &c.ServiceName)
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPAddr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("GRPC_PORT"); v != "" {
		c.GRPCAddr = ":" + strings.TrimPrefix(v, ":")
	}
	str("STORE_BACKEND", &c.Store.Backend)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DB", &c.Store.MongoDB)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("SAGA_LOG_BACKEND", &c.SagaLog.Backend)
	str("SAGA_LOG_PATH", &c.SagaLog.SQLitePath)
	str("POSTGRES_DSN", &c.SagaLog.PostgresDSN)
	str("REDIS_ADDR", &c.RedisAddr)
	str("RABBITMQ_URL", &c.RabbitMQURL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("ADMIN_ROLE", &c.Auth.AdminRole)
	str("FRONTEND_URL", &c.FrontendURL)
	str("USER_SERVICE_URL", &c.UserService.URL)
	str("PAYMENT_PROVIDER", &c.Payment.Provider)
	str("STRIPE_SECRET_KEY", &c.Payment.StripeKey)
	str("CURRENCY", &c.Payment.Currency)
	str("VERIFY_MODE", &c.Payment.VerifyMode)
	str("MOCK_PAYMENT_URL", &c.Payment.MockBaseURL)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}

	var err error
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if c.RateLimit.RPS, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("config: RATE_LIMIT_RPS: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if c.RateLimit.Burst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: RATE_LIMIT_BURST: %w", err)
		}
	}
	if v := os.Getenv("DELIVERY_CHARGE"); v != "" {
		if c.Payment.DeliveryCharge, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("config: DELIVERY_CHARGE: %w", err)
		}
	}
	if v := os.Getenv("USER_SERVICE_TIMEOUT"); v != "" {
		if c.UserService.Timeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: USER_SERVICE_TIMEOUT: %w", err)
		}
	}
	return nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Backend {
	case BackendMongo:
		if c.Store.MongoURI == "" {
			problems = append(problems, "store.mongo_uri is required for the mongo backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			problems = append(problems, "store.sqlite_path is required for the sqlite backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store backend %q", c.Store.Backend))
	}
	switch c.SagaLog.Backend {
	case BackendSQLite, BackendNone:
	case BackendPostgres:
		if c.SagaLog.PostgresDSN == "" {
			problems = append(problems, "saga_log.postgres_dsn is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown saga log backend %q", c.SagaLog.Backend))
	}
	switch c.Payment.Provider {
	case ProviderMock:
	case ProviderStripe:
		if c.Payment.StripeKey == "" {
			problems = append(problems, "payment.stripe_key is required for the stripe provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown payment provider %q", c.Payment.Provider))
	}
	if c.Payment.VerifyMode != VerifyProvider && c.Payment.VerifyMode != VerifyRedirect {
		problems = append(problems, fmt.Sprintf("unknown verify mode %q", c.Payment.VerifyMode))
	}
	if c.Payment.DeliveryCharge < 0 {
		problems = append(problems, "payment.delivery_charge must not be negative")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		problems = append(problems, "rate_limit.rps and rate_limit.burst must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
