// Package container wires the application with samber/do provider packages.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/jagaleanoob/fast-limiter/internal/analytics"
	eventstore "github.com/jagaleanoob/fast-limiter/internal/analytics/store"
	"github.com/jagaleanoob/fast-limiter/internal/gate"
	"github.com/jagaleanoob/fast-limiter/internal/handlers"
	"github.com/jagaleanoob/fast-limiter/internal/health"
	"github.com/jagaleanoob/fast-limiter/internal/middleware"
	"github.com/jagaleanoob/fast-limiter/internal/ratelimit"
	"github.com/jagaleanoob/fast-limiter/internal/store"
)

const (
	tokenLength   = 21
	consumerGroup = "fast-limiter-analytics"
)

// Options is the CLI/configuration surface shared by both binaries.
type Options struct {
	Port           int    `default:"8888"            help:"Port to listen on"                                    short:"p"`
	RedisAddr      string `default:"localhost:6379"  help:"Redis server address"                                 short:"r"`
	PostgresURL    string `default:""                help:"PostgreSQL connection string (empty disables it)"`
	Backend        string `default:"memory"          help:"Storage backend: memory, redis or postgres"`
	Algorithm      string `default:"fixed_window"    help:"Rate limiting algorithm: fixed_window or token_bucket"`
	Limit          int    `default:"100"             help:"Requests allowed per window"`
	WindowSeconds  int    `default:"60"              help:"Window length in seconds"`
	BucketCapacity int    `default:"0"               help:"Token bucket capacity, 0 uses the requests limit"`
	JitterSeconds  int    `default:"0"               help:"Random seconds added to the window per check"`
	FailurePolicy  string `default:"closed"          help:"Behavior when the backend fails: open or closed"`
	PublishDenials bool   `default:"false"           help:"Publish deny events to redis streams"`
	LogFormat      string `default:"console"         help:"Log format: console or json"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		}), nil
	})
}

// PostgresPackage provides the pgx connection pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.PostgresURL == "" {
			return nil, fmt.Errorf("postgres-url is required for backend %q", opts.Backend)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return pgxpool.New(ctx, opts.PostgresURL)
	})
}

// StorePackage provides the storage backend the limiter runs on.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Backend {
		case "memory":
			return store.NewMemory(), nil
		case "redis":
			return store.NewRedis(do.MustInvoke[*redis.Client](i)), nil
		case "postgres":
			pool, err := do.Invoke[*pgxpool.Pool](i)
			if err != nil {
				return nil, err
			}

			pg := store.NewPostgres(pool)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := pg.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate rate limit store: %w", err)
			}

			if _, err := pg.CleanupExpired(ctx); err != nil {
				return nil, fmt.Errorf("cleanup rate limit store: %w", err)
			}

			return pg, nil
		default:
			return nil, fmt.Errorf("unknown backend %q", opts.Backend)
		}
	})
}

// RateLimitPackage provides the limiter, composing the configured algorithm
// with the jitter wrapper when enabled.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		backend := do.MustInvoke[ratelimit.Store](i)

		var limiter ratelimit.Limiter

		switch opts.Algorithm {
		case "fixed_window":
			limiter = ratelimit.NewFixedWindow(backend)
		case "token_bucket":
			limiter = ratelimit.NewTokenBucket(backend, float64(opts.BucketCapacity))
		default:
			return nil, fmt.Errorf("unknown algorithm %q", opts.Algorithm)
		}

		if opts.JitterSeconds > 0 {
			limiter = ratelimit.NewJitter(limiter, opts.JitterSeconds)
		}

		return limiter, nil
	})
}

// GatePackage provides the admission gate.
func GatePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*gate.Gate, error) {
		opts := do.MustInvoke[*Options](i)

		var policy gate.FailurePolicy

		switch opts.FailurePolicy {
		case "open":
			policy = gate.FailOpen
		case "closed":
			policy = gate.FailClosed
		default:
			return nil, fmt.Errorf("unknown failure policy %q", opts.FailurePolicy)
		}

		return gate.New(gate.Config{
			Limit:     opts.Limit,
			Window:    time.Duration(opts.WindowSeconds) * time.Second,
			Limiter:   do.MustInvoke[ratelimit.Limiter](i),
			OnFailure: policy,
			Logger:    do.MustInvoke[*zap.Logger](i),
		})
	})
}

// AnalyticsPackage provides the deny event publisher. It is nil when deny
// publishing is disabled.
func AnalyticsPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*analytics.Publisher, error) {
		opts := do.MustInvoke[*Options](i)

		if !opts.PublishDenials {
			return nil, nil
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*redis.Client](i),
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		return analytics.NewPublisher(publisher), nil
	})
}

// ConsumerPackage provides the deny event consumer used by cmd/consumer.
// Events land in postgres when a connection string is configured, otherwise
// they are logged.
func ConsumerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*analytics.Consumer, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[*redis.Client](i),
			ConsumerGroup: consumerGroup,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		var events analytics.Store = eventstore.NewNoop(logger)

		if opts.PostgresURL != "" {
			pool, err := do.Invoke[*pgxpool.Pool](i)
			if err != nil {
				return nil, err
			}

			pg := eventstore.NewPostgres(pool)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := pg.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate deny event store: %w", err)
			}

			events = pg
		}

		return analytics.NewConsumer(subscriber, events, logger), nil
	})
}

// HTTPPackage provides the router and the API with middleware and routes
// registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("Fast Limiter Demo", "1.0.0"))

		g := do.MustInvoke[*gate.Gate](i)
		events := do.MustInvoke[*analytics.Publisher](i)

		api.UseMiddleware(middleware.RateLimit(api, g, nil, events, logger))

		generate, err := nanoid.Standard(tokenLength)
		if err != nil {
			return nil, err
		}

		handlers.RegisterRoutes(api, handlers.NewSessionHandler(generate, logger))
		health.RegisterRoutes(api, health.NewHandler(healthChecker(i, opts)))

		return api, nil
	})
}

func healthChecker(i *do.Injector, opts *Options) health.Checker {
	switch opts.Backend {
	case "redis":
		return health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
	case "postgres":
		if pool, err := do.Invoke[*pgxpool.Pool](i); err == nil {
			return health.NewPostgresChecker(pool)
		}
	}

	return nil
}
