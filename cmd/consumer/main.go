package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/container"
	"github.com/serroba/shortener-go/internal/messaging"
	"go.uber.org/zap"
)

// The consumer binary runs the token-used marker: it drains bookkeeping
// events published by the issuer and flips the ledger rows to used.
func main() {
	opts := &container.Options{
		Store:         getEnv("STORE", "mongo"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "shortener"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "postgres://postgres@localhost:5432/shortener"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		LockTTL:       "10m",
		LogFormat:     getEnv("LOG_FORMAT", "console"),
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.MongoPackage(injector)
	container.PostgresPackage(injector)
	container.StorePackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}
