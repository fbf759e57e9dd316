package app

import "time"

// Session backend selectors for Config.SessionBackend.
const (
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	DBQueryTimeout time.Duration

	// MigrateOnStart applies pending schema migrations during startup.
	MigrateOnStart bool

	// SessionBackend selects where sessions live: memory, postgres or redis.
	SessionBackend string
	RedisURL       string

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("AUTHGATE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("AUTHGATE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("AUTHGATE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("AUTHGATE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("AUTHGATE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("AUTHGATE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("AUTHGATE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("AUTHGATE_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("AUTHGATE_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("AUTHGATE_DB_MIN_CONNS", 0),
		DBQueryTimeout: EnvDuration("AUTHGATE_DB_QUERY_TIMEOUT", 3*time.Second),

		MigrateOnStart: EnvBool("AUTHGATE_MIGRATE_ON_START", true),

		SessionBackend: EnvString("AUTHGATE_SESSION_BACKEND", SessionBackendPostgres),
		RedisURL:       EnvString("AUTHGATE_REDIS_URL", ""),

		ReadinessRequireDB: EnvBool("AUTHGATE_READINESS_REQUIRE_DB", false),
	}
}
