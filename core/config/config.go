package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"groombook-api/core/constants"
)

type ServerConfig struct {
	Port        int    `mapstructure:"SERVER_PORT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     int    `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"REDIS_ADDR"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"JWT_SECRET"`
	TTL    time.Duration `mapstructure:"JWT_TTL"`
}

type GoogleAPIConfig struct {
	ClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	ClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	RedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
}

// SyncConfig tunes the calendar sync engine. Defaults from core/constants.
type SyncConfig struct {
	QuotaLimit         int           `mapstructure:"SYNC_QUOTA_LIMIT"`
	QuotaWindow        time.Duration `mapstructure:"SYNC_QUOTA_WINDOW"`
	NearLimitThreshold float64       `mapstructure:"SYNC_NEAR_LIMIT_THRESHOLD"`
	RetryBaseDelay     time.Duration `mapstructure:"SYNC_RETRY_BASE_DELAY"`
	RetryMaxDelay      time.Duration `mapstructure:"SYNC_RETRY_MAX_DELAY"`
	MaxRetries         int           `mapstructure:"SYNC_MAX_RETRIES"`
	TokenEncryptionKey string        `mapstructure:"SYNC_TOKEN_ENCRYPTION_KEY"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	JWT       JWTConfig       `mapstructure:",squash"`
	GoogleAPI GoogleAPIConfig `mapstructure:",squash"`
	Sync      SyncConfig      `mapstructure:",squash"`
}

var (
	instance *Config
	mu       sync.RWMutex
)

// Load reads .env (if present) and the process environment into the
// singleton. Call once from server bootstrap.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", 7070)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "groombook")
	v.SetDefault("DB_SSLMODE", constants.DatabaseSSLMode)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_TTL", constants.TokenTTL)
	v.SetDefault("SYNC_QUOTA_LIMIT", constants.SyncQuotaLimit)
	v.SetDefault("SYNC_QUOTA_WINDOW", constants.SyncQuotaWindow)
	v.SetDefault("SYNC_NEAR_LIMIT_THRESHOLD", constants.SyncNearLimitThreshold)
	v.SetDefault("SYNC_RETRY_BASE_DELAY", constants.SyncRetryBaseDelay)
	v.SetDefault("SYNC_RETRY_MAX_DELAY", constants.SyncRetryMaxDelay)
	v.SetDefault("SYNC_MAX_RETRIES", constants.SyncMaxRetries)

	// Bind explicitly so AutomaticEnv sees keys that are absent from any
	// config file.
	for _, key := range []string{
		"SERVER_PORT", "FRONTEND_URL",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"JWT_SECRET", "JWT_TTL",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"SYNC_QUOTA_LIMIT", "SYNC_QUOTA_WINDOW", "SYNC_NEAR_LIMIT_THRESHOLD",
		"SYNC_RETRY_BASE_DELAY", "SYNC_RETRY_MAX_DELAY", "SYNC_MAX_RETRIES",
		"SYNC_TOKEN_ENCRYPTION_KEY",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	instance = &cfg
	mu.Unlock()

	return &cfg, nil
}

// Get returns the loaded config. Panics if Load was never called; use
// GetSafe where a missing config is survivable.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("config: not initialized")
	}
	return instance
}

func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return nil, false
	}
	return instance, true
}

// SetForTesting swaps the singleton in tests.
func SetForTesting(cfg *Config) {
	mu.Lock()
	instance = cfg
	mu.Unlock()
}
