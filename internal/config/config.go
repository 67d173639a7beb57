package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/flexidesk/service-booking/internal/platform/database"
	"github.com/flexidesk/service-booking/internal/platform/redis"
)

const envPrefix = "BOOKING"

// JWTConfig holds token validation settings.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// PaymentConfig holds checkout gateway settings.
type PaymentConfig struct {
	SecretKey     string
	BaseURL       string
	Timeout       time.Duration
	WebhookSecret string
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port              string
	AppEnv            string
	AppURL            string
	Timezone          string
	EntryTokenSecret  string
	LockTTL           time.Duration
	IdempotencyTTL    time.Duration
	AnalyticsCacheTTL time.Duration
	DBConfig          database.PostgresConfig
	RedisConfig       redis.Config
	JWTConfig         JWTConfig
	KafkaConfig       KafkaConfig
	PaymentConfig     PaymentConfig
}

// Load reads configuration from a .env file (if present) and BOOKING_* environment variables.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:              normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:            v.GetString("APP_ENV"),
		AppURL:            strings.TrimRight(v.GetString("APP_URL"), "/"),
		Timezone:          v.GetString("TIMEZONE"),
		EntryTokenSecret:  v.GetString("ENTRY_TOKEN_SECRET"),
		LockTTL:           v.GetDuration("LOCK_TTL"),
		IdempotencyTTL:    v.GetDuration("IDEMPOTENCY_TTL"),
		AnalyticsCacheTTL: v.GetDuration("ANALYTICS_CACHE_TTL"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RedisConfig: redis.Config{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWTConfig: JWTConfig{
			Secret:    v.GetString("JWT_SECRET"),
			AccessTTL: v.GetDuration("JWT_ACCESS_TTL"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		PaymentConfig: PaymentConfig{
			SecretKey:     v.GetString("PAYMONGO_SECRET_KEY"),
			BaseURL:       v.GetString("PAYMONGO_BASE_URL"),
			Timeout:       v.GetDuration("PAYMENT_TIMEOUT"),
			WebhookSecret: v.GetString("WEBHOOK_SECRET"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_URL", "http://localhost:5173")
	v.SetDefault("TIMEZONE", "Asia/Manila")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("ANALYTICS_CACHE_TTL", "30s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "flexidesk_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "flexidesk-")
	v.SetDefault("PAYMONGO_BASE_URL", "https://api.paymongo.com/v1")
	v.SetDefault("PAYMENT_TIMEOUT", "15s")
}

func (c *ServiceConfig) validate() error {
	if c.JWTConfig.Secret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", envPrefix)
	}
	if c.EntryTokenSecret == "" {
		return fmt.Errorf("%s_ENTRY_TOKEN_SECRET is required", envPrefix)
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("%s_KAFKA_BROKERS is required", envPrefix)
	}
	if c.PaymentConfig.Timeout <= 0 {
		return fmt.Errorf("%s_PAYMENT_TIMEOUT must be positive", envPrefix)
	}
	return nil
}

// IsDevelopment reports whether the service runs with development conveniences.
func (c *ServiceConfig) IsDevelopment() bool { return c.AppEnv == "development" }

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
