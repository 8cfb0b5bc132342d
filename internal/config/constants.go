package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Pairing code validity window, applied at issue time
const PairingCodeTTL = 24 * time.Hour

// Pairing code length and collision retry bound
const (
	PairingCodeLength      = 8
	PairingCodeMaxAttempts = 10
)

// TrustCacheTTL bounds how long a cached trust flag may be served. Revocation
// invalidates the entry synchronously, so this only limits staleness when an
// invalidation is lost (e.g. redis restart).
const TrustCacheTTL = 5 * time.Second

// Admin session lifetime
const AdminSessionTTL = 24 * time.Hour

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Default per-station rate limit
const DefaultRateLimitPerMin = 120
