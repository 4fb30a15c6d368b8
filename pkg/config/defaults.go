package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "appointments"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultMongoMaxPoolSize  = 100

	DefaultRedisDB = 0

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultClaimMaxAttempts = 3
	DefaultClaimBackoffBase = 100 * time.Millisecond
	DefaultClaimTimeout     = 10 * time.Second

	DefaultBookingEventsTopic = "booking-events"
	DefaultNotifierGroupID    = "booking-notifier"
	DefaultAuditCronSpec      = "*/15 * * * *"

	DefaultPaginationLimit = 100
)
