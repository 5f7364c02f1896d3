package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hotelcore/service-booking/internal/common/database"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Enabled bool
	Secret  string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds the assignment lock backend settings.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

// InvoiceConfig holds invoice numbering and tax defaults.
type InvoiceConfig struct {
	Prefix      string
	VatIncluded bool
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	StorageDriver   string
	DBConfig        database.PostgresConfig
	Auth            AuthConfig
	Kafka           KafkaConfig
	Redis           RedisConfig
	Invoice         InvoiceConfig
	RevenueLocation *time.Location
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	loc, err := time.LoadLocation(v.GetString("REVENUE_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("load REVENUE_TIMEZONE: %w", err)
	}

	cfg := &ServiceConfig{
		Port:            servicePort(v.GetString("SERVICE_PORT")),
		AppEnv:          v.GetString("APP_ENV"),
		StorageDriver:   strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DBConfig:        loadDatabaseConfig(v),
		Auth:            AuthConfig{Enabled: v.GetBool("AUTH_ENABLED"), Secret: v.GetString("JWT_SECRET")},
		Kafka:           loadKafkaConfig(v),
		Redis:           loadRedisConfig(v),
		Invoice:         InvoiceConfig{Prefix: v.GetString("INVOICE_PREFIX"), VatIncluded: v.GetBool("INVOICE_VAT_INCLUDED")},
		RevenueLocation: loc,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	switch c.StorageDriver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hotel_booking")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "hotel-")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ASSIGNMENT_LOCK_TTL", "5s")
	v.SetDefault("ASSIGNMENT_LOCK_WAIT", "2s")
	v.SetDefault("INVOICE_PREFIX", "INV")
	v.SetDefault("INVOICE_VAT_INCLUDED", true)
	v.SetDefault("REVENUE_TIMEZONE", "UTC")
}

func loadDatabaseConfig(v *viper.Viper) database.PostgresConfig {
	return database.PostgresConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetString("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		DBName:          v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSLMODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
	}
}

func loadKafkaConfig(v *viper.Viper) KafkaConfig {
	return KafkaConfig{
		Enabled:     v.GetBool("KAFKA_ENABLED"),
		Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		LockTTL:  v.GetDuration("ASSIGNMENT_LOCK_TTL"),
		LockWait: v.GetDuration("ASSIGNMENT_LOCK_WAIT"),
	}
}

// servicePort accepts "8080" or ":8080".
func servicePort(raw string) string {
	if strings.HasPrefix(raw, ":") {
		return raw
	}
	return ":" + raw
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
