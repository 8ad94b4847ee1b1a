// Package container wires the application graph. Each concern registers
// itself on a samber/do injector through a *Package function so the server
// and consumer binaries can compose only what they need.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/handlers"
	"github.com/serroba/shortener-go/internal/joblock"
	"github.com/serroba/shortener-go/internal/messaging"
	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/store"
	"github.com/serroba/shortener-go/internal/token"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Options is the full CLI/environment configuration surface.
type Options struct {
	Port    int    `default:"8888" help:"Port to listen on" short:"p"`
	BaseURL string `default:""     help:"Public base URL for short links; derived from the port when empty"`

	Store         string `default:"mongo"                     help:"Authoritative store backend: mongo, postgres, or memory"`
	MongoURI      string `default:"mongodb://localhost:27017" help:"MongoDB connection URI"`
	MongoDatabase string `default:"shortener"                 help:"MongoDB database name"`
	PostgresDSN   string `default:"postgres://postgres@localhost:5432/shortener" help:"PostgreSQL connection string"`
	RedisAddr     string `default:"localhost:6379"            help:"Redis server address" short:"r"`

	EpochDate         string `default:"2024-01-01" help:"Token time-base date (YYYY-MM-DD); must not be in the future"`
	SuffixLength      int    `default:"3"          help:"Random base-62 characters appended to each token"`
	PoolLowWaterMark  int    `default:"1000"       help:"Unused-token count that triggers replenishment"`
	PoolExtendBatch   int    `default:"500"        help:"Extra tokens generated on top of the shortfall"`
	SeedParallelism   int    `default:"10"         help:"Concurrent generate+insert operations per batch"`
	ReplenishInterval string `default:"5m"         help:"How often the replenisher runs"`
	LockTTL           string `default:"10m"        help:"Job lock expiry, bounding how long a crashed run blocks the next one"`

	DefaultTTLMinutes int `default:"1440" help:"Link lifetime in minutes when the request does not set one"`

	LogFormat string `default:"console" help:"Log output format: console or json"`
}

func (o *Options) baseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
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

// RedisPackage provides the shared Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		}), nil
	})
}

// MongoPackage provides the Mongo client and database, and creates the
// indexes the repositories rely on.
func MongoPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*mongo.Database, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(opts.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}

		db := client.Database(opts.MongoDatabase)

		if err := store.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}

		logger.Info("connected to mongo", zap.String("database", opts.MongoDatabase))

		return db, nil
	})
}

// PostgresPackage provides the pgx connection pool.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*pgxpool.Pool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return pool, nil
	})
}

// StorePackage provides the pool repository, link repository, link cache,
// and ready-token queue for the configured backend. The memory backend
// needs no external services and exists for local runs and tests.
func StorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (token.PoolRepository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case "postgres":
			return store.NewPostgresPool(do.MustInvoke[*pgxpool.Pool](i)), nil
		case "memory":
			return store.NewMemoryPool(), nil
		default:
			return store.NewMongoPool(do.MustInvoke[*mongo.Database](i)), nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Store {
		case "postgres":
			return store.NewPostgresLinks(do.MustInvoke[*pgxpool.Pool](i)), nil
		case "memory":
			return store.NewMemoryLinks(), nil
		default:
			return store.NewMongoLinks(do.MustInvoke[*mongo.Database](i)), nil
		}
	})

	do.Provide(injector, func(i *do.Injector) (shortener.LinkCache, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Store == "memory" {
			return store.NewMemoryLinkCache(), nil
		}

		return store.NewRedisLinkCache(do.MustInvoke[*redis.Client](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (token.TokenQueue, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Store == "memory" {
			return store.NewMemoryQueue(), nil
		}

		return store.NewRedisTokenQueue(do.MustInvoke[*redis.Client](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (joblock.Guard, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Store == "memory" {
			return joblock.NewMemoryGuard(), nil
		}

		lockTTL, err := time.ParseDuration(opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("parse lock ttl: %w", err)
		}

		return joblock.NewRedisGuard(do.MustInvoke[*redis.Client](i), lockTTL), nil
	})
}

// TokenPackage provides the token builder, issuer, replenisher, and its
// interval scheduler.
func TokenPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*token.Builder, error) {
		opts := do.MustInvoke[*Options](i)

		epoch, err := time.Parse("2006-01-02", opts.EpochDate)
		if err != nil {
			return nil, fmt.Errorf("parse epoch date: %w", err)
		}

		return token.NewBuilder(epoch, opts.SuffixLength)
	})

	do.Provide(injector, func(i *do.Injector) (*token.Issuer, error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)
		publishUsed := messaging.NewPublishFunc[token.TokenUsedEvent](group.Publisher(), token.TopicTokenUsed)

		return token.NewIssuer(
			do.MustInvoke[*token.Builder](i),
			do.MustInvoke[token.PoolRepository](i),
			do.MustInvoke[token.TokenQueue](i),
			publishUsed,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*token.Replenisher, error) {
		opts := do.MustInvoke[*Options](i)

		return token.NewReplenisher(
			do.MustInvoke[*token.Builder](i),
			do.MustInvoke[token.PoolRepository](i),
			do.MustInvoke[token.TokenQueue](i),
			do.MustInvoke[joblock.Guard](i),
			token.ReplenisherConfig{
				LowWaterMark:    int64(opts.PoolLowWaterMark),
				ExtendBatchSize: int64(opts.PoolExtendBatch),
				Parallelism:     opts.SeedParallelism,
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*token.Scheduler, error) {
		opts := do.MustInvoke[*Options](i)

		interval, err := time.ParseDuration(opts.ReplenishInterval)
		if err != nil {
			return nil, fmt.Errorf("parse replenish interval: %w", err)
		}

		return token.NewScheduler(
			do.MustInvoke[*token.Replenisher](i),
			interval,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// ShortenerPackage provides the Shorten/Resolve service.
func ShortenerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		return shortener.NewService(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[shortener.LinkCache](i),
			do.MustInvoke[*token.Issuer](i),
			opts.baseURL(),
			time.Duration(opts.DefaultTTLMinutes)*time.Minute,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

// PublisherGroupPackage provides the watermill publisher over Redis streams.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, newWatermillLogger(do.MustInvoke[*zap.Logger](i)))
		if err != nil {
			return nil, fmt.Errorf("create redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the consumer group running the token-used
// marker.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "token-marker",
		}, newWatermillLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create redis stream subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)

		pool := do.MustInvoke[token.PoolRepository](i)
		group.Add(messaging.NewConsumer(
			subscriber,
			token.TopicTokenUsed,
			token.NewMarkUsedHandler(pool),
			logger,
		))

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with all routes
// registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		api := humachi.New(router, huma.DefaultConfig("Shortener", "1.0.0"))

		linkHandler := handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[*zap.Logger](i),
		)

		handlers.RegisterRoutes(api, linkHandler)

		return api, nil
	})
}
