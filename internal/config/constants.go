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
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Expired session rows are kept around this long for debugging before the
// cleanup job deletes them.
const ExpiredSessionRetention = 24 * time.Hour

// How long the auth middleware caches a resolved session token. Devices
// poll every few seconds, so a short cache keeps the DB out of the hot path.
const AuthCacheTTL = 30 * time.Second
