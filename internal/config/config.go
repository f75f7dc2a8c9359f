package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds operator API listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PARKGATE_HTTP_PORT"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"PARKGATE_POSTGRES_DSN"`
}

// RedisConfig holds active-session cache settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"PARKGATE_REDIS_ADDR"`
	Password string `yaml:"password" env:"PARKGATE_REDIS_PASSWORD"`
	TTL      int    `yaml:"ttlSeconds" env:"PARKGATE_REDIS_TTL"`
}

// GateConfig holds checkpoint device transport settings.
type GateConfig struct {
	PingIntervalSec int `yaml:"pingIntervalSeconds" env:"PARKGATE_GATE_PING_INTERVAL"`
	WriteTimeoutSec int `yaml:"writeTimeoutSeconds" env:"PARKGATE_GATE_WRITE_TIMEOUT"`
}

// ParkingConfig holds lot size and tariff policy.
type ParkingConfig struct {
	TotalSlots         int   `yaml:"totalSlots" env:"PARKGATE_TOTAL_SLOTS"`
	FreeMinutes        int   `yaml:"freeMinutes" env:"PARKGATE_FREE_MINUTES"`
	BillingUnitMinutes int   `yaml:"billingUnitMinutes" env:"PARKGATE_BILLING_UNIT_MINUTES"`
	UnitRate           int64 `yaml:"unitRate" env:"PARKGATE_UNIT_RATE"`
	MinFee             int64 `yaml:"minFee" env:"PARKGATE_MIN_FEE"`
}

// PaymentConfig holds bank transfer gateway settings.
type PaymentConfig struct {
	APIURL          string `yaml:"apiUrl" env:"PARKGATE_PAYMENT_API_URL"`
	APIToken        string `yaml:"apiToken" env:"PARKGATE_PAYMENT_API_TOKEN"`
	QRURL           string `yaml:"qrUrl" env:"PARKGATE_PAYMENT_QR_URL"`
	AccountNumber   string `yaml:"accountNumber" env:"PARKGATE_PAYMENT_ACCOUNT_NUMBER"`
	AccountName     string `yaml:"accountName" env:"PARKGATE_PAYMENT_ACCOUNT_NAME"`
	BankName        string `yaml:"bankName" env:"PARKGATE_PAYMENT_BANK_NAME"`
	AcquirerID      string `yaml:"acquirerId" env:"PARKGATE_PAYMENT_ACQUIRER_ID"`
	ContentPrefix   string `yaml:"contentPrefix" env:"PARKGATE_PAYMENT_CONTENT_PREFIX"`
	PollIntervalSec int    `yaml:"pollIntervalSeconds" env:"PARKGATE_PAYMENT_POLL_INTERVAL"`
	MaxAttempts     int    `yaml:"maxAttempts" env:"PARKGATE_PAYMENT_MAX_ATTEMPTS"`
}

// AuthConfig holds operator authentication settings. AdminUsername and
// AdminPassword seed the bootstrap account on first start; leaving the
// password empty skips seeding.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwtSecret" env:"PARKGATE_JWT_SECRET"`
	TokenTTLMin   int    `yaml:"tokenTtlMinutes" env:"PARKGATE_TOKEN_TTL"`
	BcryptCost    int    `yaml:"bcryptCost" env:"PARKGATE_BCRYPT_COST"`
	AdminUsername string `yaml:"adminUsername" env:"PARKGATE_ADMIN_USERNAME"`
	AdminPassword string `yaml:"adminPassword" env:"PARKGATE_ADMIN_PASSWORD"`
}

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gate     GateConfig     `yaml:"gate"`
	Parking  ParkingConfig  `yaml:"parking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Auth     AuthConfig     `yaml:"auth"`
}

// Load reads configuration from file and environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{Port: "8080"},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  86400,
		},
		Gate: GateConfig{
			PingIntervalSec: 30,
			WriteTimeoutSec: 10,
		},
		Parking: ParkingConfig{
			TotalSlots:         10,
			FreeMinutes:        15,
			BillingUnitMinutes: 60,
			UnitRate:           5000,
			MinFee:             5000,
		},
		Payment: PaymentConfig{
			QRURL:           "https://api.vietqr.io/v2/generate",
			ContentPrefix:   "SEVQR",
			PollIntervalSec: 5,
			MaxAttempts:     60,
		},
		Auth: AuthConfig{
			TokenTTLMin:   480,
			AdminUsername: "admin",
		},
	}

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("config: jwt secret required")
	}
	if cfg.Parking.TotalSlots <= 0 {
		return nil, errors.New("config: total slots must be positive")
	}
	if cfg.Parking.BillingUnitMinutes <= 0 {
		return nil, errors.New("config: billing unit must be positive")
	}
	return cfg, nil
}

// HTTPAddress returns the listen address in :port form.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PingInterval returns the gate keepalive interval.
func (c *Config) PingInterval() time.Duration {
	if c.Gate.PingIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Gate.PingIntervalSec) * time.Second
}

// WriteTimeout returns the gate write deadline.
func (c *Config) WriteTimeout() time.Duration {
	if c.Gate.WriteTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Gate.WriteTimeoutSec) * time.Second
}

// ActiveSessionTTL returns the redis cache TTL.
func (c *Config) ActiveSessionTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// PollInterval returns the settlement polling interval.
func (c *Config) PollInterval() time.Duration {
	if c.Payment.PollIntervalSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Payment.PollIntervalSec) * time.Second
}

// TokenTTL returns operator token lifetime.
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLMin <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLMin) * time.Minute
}
