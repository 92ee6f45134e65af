// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Auth        AuthConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Yoco        YocoConfig
	Stripe      StripeConfig
	Luno        LunoConfig
	Kafka       KafkaConfig
	Telemetry   TelemetryConfig
	Worker      WorkerConfig
	Email       EmailConfig
	Log         LogConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	SeedCatalog  bool
}

type JWTConfig struct {
	SecretKey      string
	Issuer         string
	AccessTokenTTL int // in hours
}

type AuthConfig struct {
	DemoLoginEnabled bool
	DemoCredit       decimal.Decimal
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type PaymentConfig struct {
	Currency       string
	CardProvider   string // yoco or stripe
	ShippingFee    decimal.Decimal
	MinimumDeposit decimal.Decimal
	GatewayTimeout time.Duration
}

type YocoConfig struct {
	SecretKey string
	BaseURL   string
}

type StripeConfig struct {
	SecretKey string
	// BackendURL overrides the API endpoint, used against stripe-mock.
	BackendURL string
}

type LunoConfig struct {
	APIKeyID     string
	APIKeySecret string
	BaseURL      string
}

type KafkaConfig struct {
	Brokers        []string
	OrderPaidTopic string
	ConsumerGroup  string
}

type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
	MetricsEnabled bool
}

type WorkerConfig struct {
	SweepInterval time.Duration
	PendingTTL    time.Duration
	SweepBatch    int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")

	config := &Config{
		Environment: environment,
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 45),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			SeedCatalog:  getEnvAsBool("DB_SEED_CATALOG", true),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", defaultJWTSecret),
			Issuer:         getEnv("JWT_ISSUER", "petes-pantry"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		Auth: AuthConfig{
			DemoLoginEnabled: getEnvAsBool("AUTH_DEMO_LOGIN", environment != "production"),
			DemoCredit:       getEnvAsDecimal("AUTH_DEMO_CREDIT", decimal.NewFromInt(100)),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "af-south-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "petes-pantry-assets"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Payment: PaymentConfig{
			Currency:       getEnv("PAYMENT_CURRENCY", "ZAR"),
			CardProvider:   strings.ToLower(getEnv("PAYMENT_CARD_PROVIDER", "yoco")),
			ShippingFee:    getEnvAsDecimal("PAYMENT_SHIPPING_FEE", decimal.NewFromInt(50)),
			MinimumDeposit: getEnvAsDecimal("PAYMENT_MINIMUM_DEPOSIT", decimal.NewFromInt(50)),
			GatewayTimeout: getEnvAsDuration("PAYMENT_GATEWAY_TIMEOUT", 30*time.Second),
		},
		Yoco: YocoConfig{
			SecretKey: getEnv("YOCO_SECRET_KEY", ""),
			BaseURL:   getEnv("YOCO_BASE_URL", "https://online.yoco.com/v1"),
		},
		Stripe: StripeConfig{
			SecretKey:  getEnv("STRIPE_SECRET_KEY", ""),
			BackendURL: getEnv("STRIPE_BACKEND_URL", ""),
		},
		Luno: LunoConfig{
			APIKeyID:     getEnv("LUNO_API_KEY_ID", ""),
			APIKeySecret: getEnv("LUNO_API_KEY_SECRET", ""),
			BaseURL:      getEnv("LUNO_BASE_URL", "https://api.luno.com/api/1"),
		},
		Kafka: KafkaConfig{
			Brokers:        getEnvAsSlice("KAFKA_BROKERS", nil),
			OrderPaidTopic: getEnv("KAFKA_ORDER_PAID_TOPIC", "storefront.order-paid"),
			ConsumerGroup:  getEnv("KAFKA_CONSUMER_GROUP", "storefront-notifications"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "storefront"),
			ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Worker: WorkerConfig{
			SweepInterval: getEnvAsDuration("WORKER_SWEEP_INTERVAL", 5*time.Minute),
			PendingTTL:    getEnvAsDuration("WORKER_PENDING_TTL", 48*time.Hour),
			SweepBatch:    getEnvAsInt("WORKER_SWEEP_BATCH", 100),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "orders@petespantry.co.za"),
			FromName:     getEnv("FROM_NAME", "Pete's Pantry"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Payment.CardProvider {
	case "yoco", "stripe":
	default:
		return fmt.Errorf("unknown card provider %q", c.Payment.CardProvider)
	}

	if c.Payment.ShippingFee.IsNegative() {
		return fmt.Errorf("shipping fee cannot be negative")
	}

	if c.Payment.MinimumDeposit.IsNegative() {
		return fmt.Errorf("minimum deposit cannot be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
