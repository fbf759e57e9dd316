// Package app wires the authgate runtime: config, logging, metrics,
// storage and the HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"authgate/cmd/identity"
	authapi "authgate/cmd/internal/auth/api"
	"authgate/cmd/internal/auth/session"
	"authgate/cmd/security/password"
)

// App is the authgate runtime: it owns the HTTP server and the storage
// resources behind the auth endpoints.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	redis *redis.Client

	metrics *Metrics
	auth    *authapi.Handler

	sessStore *session.MemoryStore // set only for the memory backend
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}

	if cfg.DatabaseURL == "" {
		// Degraded mode: the process serves health endpoints and every
		// auth request answers 503 until storage is configured.
		log.Info("db.disabled.degraded_mode")

		auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), password.DefaultConfig().Policy, nil, nil, false,
			authapi.WithAuthMetrics(a.metrics.AuthResults))
		if err != nil {
			return nil, err
		}
		a.auth = auth
		return a, nil
	}

	pool, err := NewDBPool(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	a.dbPool = pool
	a.dbEnabled = true
	log.Info("db.enabled.postgres_store")

	if cfg.MigrateOnStart {
		if err := MigrateUp(cfg.DatabaseURL, log); err != nil {
			pool.Close()
			return nil, err
		}
	}

	hasher, err := password.FromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	users, err := identity.NewPostgresStore(pool, hasher, identity.WithQueryTimeout(cfg.DBQueryTimeout))
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessCfg, err := session.FromEnv()
	if err != nil {
		pool.Close()
		return nil, err
	}

	sessStore, err := a.newSessionStore(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	authority, err := session.NewAuthority(users, sessStore, hasher, sessCfg)
	if err != nil {
		a.closeStorage()
		return nil, err
	}

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), hasher.Policy, users, authority, true,
		authapi.WithAuthMetrics(a.metrics.AuthResults))
	if err != nil {
		a.closeStorage()
		return nil, err
	}
	a.auth = auth

	return a, nil
}

// newSessionStore picks the session backend named by config.
func (a *App) newSessionStore(cfg Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case SessionBackendMemory:
		a.log.Info("sessions.backend", "kind", "memory")
		a.sessStore = session.NewMemoryStore()
		return a.sessStore, nil

	case SessionBackendPostgres:
		a.log.Info("sessions.backend", "kind", "postgres")
		return session.NewPostgresStore(a.dbPool, session.WithPostgresQueryTimeout(cfg.DBQueryTimeout))

	case SessionBackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("app: redis session backend requires AUTHGATE_REDIS_URL")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("app: parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("app: ping redis: %w", err)
		}
		a.redis = rdb
		a.log.Info("sessions.backend", "kind", "redis")
		return session.NewRedisStore(rdb)

	default:
		return nil, fmt.Errorf("app: unknown session backend %q", cfg.SessionBackend)
	}
}

func (a *App) closeStorage() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.dbPool = nil
	}
}

// Run starts the HTTP server and blocks until context cancellation or
// a fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth)

	handler := WithMetrics(WithRequestLogging(mux, a.log), a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	// Memory sessions need a janitor; durable backends expire rows on
	// their own.
	stopSweep := a.startSessionSweeper(ctx)
	defer stopSweep()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.closeStorage()

	a.log.Info("server.stopped")
	return nil
}

func (a *App) startSessionSweeper(ctx context.Context) func() {
	if a.sessStore == nil {
		return func() {}
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := a.sessStore.Sweep(time.Now().UTC()); n > 0 {
					a.log.Debug("sessions.sweep", "removed", n)
				}
			}
		}
	}()
	return cancel
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
