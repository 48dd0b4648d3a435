package constants

import "time"

// Database
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Timeouts
const (
	DefaultTimeout     = 10 * time.Second
	ProviderTimeout    = 30 * time.Second
	ServerShutdownWait = 15 * time.Second
)

// Redis key prefixes
const (
	RedisKeyTokenBlacklist = "auth:blacklist:"
	RedisKeyLoginAttempts  = "auth:login_attempts:"
	RedisKeyQuotaCounter   = "sync:quota:"
	RedisKeyRateLimitHits  = "sync:ratelimit_hits:"
)

// Auth
const (
	MaxLoginAttempts = 5
	BlockDuration    = 15 * time.Minute
	TokenTTL         = 24 * time.Hour
)

// Calendar sync defaults. Quota values mirror the provider's per-user
// rolling budget; tune via config, not here.
const (
	SyncQuotaLimit         = 100
	SyncQuotaWindow        = time.Hour
	SyncNearLimitThreshold = 0.8

	SyncRetryBaseDelay = 30 * time.Second
	SyncRetryMaxDelay  = 1 * time.Hour
	SyncMaxRetries     = 5

	SyncRetryClaimLease = 2 * time.Minute

	// Consecutive provider rate-limit failures before auto-pause.
	SyncRateLimitPauseAfter = 3

	TokenExpirySkew = 5 * time.Minute

	OAuthStateTTL = 10 * time.Minute
)
