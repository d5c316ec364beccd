// Package app assembles the backoffice from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mundobebe/backoffice/auth"
	"github.com/mundobebe/backoffice/cache"
	"github.com/mundobebe/backoffice/catalog"
	"github.com/mundobebe/backoffice/config"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
	"github.com/mundobebe/backoffice/middleware"
	"github.com/mundobebe/backoffice/ratelimit"
	"github.com/mundobebe/backoffice/users"
)

// App holds the wired services and the resources they share.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *core.DB
	Cache    *cache.Cache
	Limiter  ratelimit.Store
	Sessions auth.SessionProvider
	JWT      *auth.JWTProvider
	Catalog  *catalog.Service
	Users    *users.Service

	redis redis.UniversalClient
}

// Option adjusts an App before its services are built.
type Option func(*options)

type options struct {
	logOutput io.Writer
	notifier  users.Notifier
	sessions  auth.SessionProvider
}

// WithLogOutput redirects log output. The default is stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

func WithNotifier(n users.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithSessions replaces the configured session provider.
func WithSessions(p auth.SessionProvider) Option {
	return func(o *options) { o.sessions = p }
}

// NewLogger builds the application logger from cfg.
func NewLogger(cfg config.Log, w io.Writer) logger.Logger {
	l := logger.NewStdLogger()
	l.SetLevel(logger.ParseLevel(cfg.Level))
	l.SetFormat(logger.LogFormat(cfg.Format))
	l.SetOutput(w)
	return l
}

// New opens the database and the configured backends and builds the
// services. The returned App must be closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	a.Logger = NewLogger(cfg.Log, o.logOutput)

	db, err := core.Open(cfg.Database.Driver, cfg.Database.DSN, &core.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.DB = db

	var mws []core.QueryMiddleware
	if cfg.Database.SlowThreshold > 0 {
		mws = append(mws, middleware.NewSlowLog(cfg.Database.SlowThreshold, nil))
	}
	if logger.ParseLevel(cfg.Log.Level) == logger.LogLevelDebug {
		mws = append(mws, middleware.NewTracing())
	}
	if err := db.Use(mws...); err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.NeedsRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.redis = client
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			// The cache fails open on its own; only the limiter needs Redis up.
			if cfg.RateLimit.Backend == "redis" {
				_ = a.Close()
				return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
			}
			a.Logger.Warn("redis %s unreachable, cache will fall through: %v", cfg.Redis.Addr, err)
		}
	}

	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		store = cache.NewRedisStore(a.redis)
	} else {
		store = cache.NewMemoryStore(time.Minute)
	}
	a.Cache = cache.New(store,
		cache.WithLogger(a.Logger.WithFields(map[string]any{"component": "cache"})),
		cache.WithDefaultTTL(cfg.Cache.TTL),
	)

	if cfg.RateLimit.Backend == "redis" {
		a.Limiter = ratelimit.NewRedisStore(a.redis)
	} else {
		a.Limiter = ratelimit.NewMemoryStore()
	}

	switch {
	case o.sessions != nil:
		a.Sessions = o.sessions
	case cfg.Auth.JWTSecret != "":
		jp, err := auth.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.JWT = jp
		a.Sessions = jp
	default:
		a.Sessions = auth.ContextProvider{}
	}

	a.Catalog = catalog.NewService(catalog.Deps{
		DB:       db,
		Cache:    a.Cache,
		Sessions: a.Sessions,
		Logger:   a.Logger.WithFields(map[string]any{"service": "catalog"}),
	})
	a.Users = users.NewService(users.Deps{
		DB:       db,
		Cache:    a.Cache,
		Sessions: a.Sessions,
		Limiter:  a.Limiter,
		Notifier: o.notifier,
		Logger:   a.Logger.WithFields(map[string]any{"service": "users"}),
	})
	return a, nil
}

// Migrate applies pending schema migrations.
func (a *App) Migrate(ctx context.Context) (int, error) {
	return core.NewMigrator(a.DB).Migrate(ctx, Migrations()...)
}

// Close releases the cache, the Redis client and the database.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
