package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvMongoMaxPoolSize  = "MONGO_MAX_POOL_SIZE"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvClaimMaxAttempts = "CLAIM_MAX_ATTEMPTS"
	EnvClaimBackoffBase = "CLAIM_BACKOFF_BASE"
	EnvClaimTimeout     = "CLAIM_TIMEOUT"

	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"
	EnvNotifierGroupID    = "NOTIFIER_GROUP_ID"
	EnvAuditCronSpec      = "AUDIT_CRON_SPEC"
)
