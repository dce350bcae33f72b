// cmd/ledger-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"subscription-ledger/internal/common/config"
	"subscription-ledger/internal/common/database"
	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/observability"
	"subscription-ledger/internal/gateway"
	"subscription-ledger/internal/ledger/creator"
	"subscription-ledger/internal/ledger/events"
	"subscription-ledger/internal/ledger/index"
	"subscription-ledger/internal/ledger/plan"
	"subscription-ledger/internal/ledger/store"
	"subscription-ledger/internal/ledger/subscription"
	"subscription-ledger/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting ledger server",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Redis (the flat key/value store) ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("redis connected")

	// --- Event emitter ---
	var emitter events.Emitter
	if cfg.Kafka.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			emitter, err = events.NewKafkaEmitter(cfg.Kafka, log)
			return err
		}, 5, 2*time.Second, zapLog, "Kafka producer initialization")
		if err != nil {
			zapLog.Fatal("kafka failed after retries", zap.Error(err))
		}
		zapLog.Info("kafka emitter connected", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		emitter = events.NewLogEmitter(log)
		zapLog.Info("kafka disabled, events go to the log")
	}
	defer emitter.Close()

	// --- Ledger services ---
	kv := store.NewRedisStore(rdb)
	locks := store.NewKeyedMutex()
	idx := index.NewManager(kv, locks, log)

	plans := plan.NewService(kv, idx, emitter, log)
	subs := subscription.NewService(kv, locks, plans, emitter, log)
	creators := creator.NewService(kv, idx, locks, emitter, log)

	dispatcher := gateway.NewDispatcher(log).WithObservability(obs)
	gateway.RegisterOperations(dispatcher, gateway.Services{
		Plans:         plans,
		Subscriptions: subs,
		Creators:      creators,
	})

	server := gateway.NewServer(cfg.Server, dispatcher, rdb, log)
	if reg, err := registry.LoadRegistry("configs/operations.json"); err != nil {
		zapLog.Warn("operation catalog not loaded", zap.Error(err))
	} else {
		server.WithCatalog(reg)
	}
	zapLog.Info("operations registered", zap.Int("count", len(dispatcher.Operations())))

	if err := server.Run(ctx); err != nil {
		zapLog.Fatal("server stopped", zap.Error(err))
	}
	zapLog.Info("shutdown complete")
}
