package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/worker"
	"kodecompiler/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(ctx, "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	var jobQ queue.Queue
	switch appCfg.Queue.Backend {
	case backendRedis:
		jobQ = queue.NewRedisQueue(redisCache, appCfg.Queue.Key)
	case backendKafka:
		kafkaQ, err := queue.NewKafkaQueue(appCfg.Kafka)
		if err != nil {
			logger.Error(ctx, "init kafka failed", zap.Error(err))
			return
		}
		jobQ = kafkaQ
	}
	defer func() {
		_ = jobQ.Close()
	}()

	registry, err := buildRegistry(appCfg.Languages)
	if err != nil {
		logger.Error(ctx, "build language registry failed", zap.Error(err))
		return
	}

	store := delivery.NewStore(redisCache, appCfg.Result.TTL)
	bus := delivery.NewRedisBus(redisCache.Client())
	defer func() {
		_ = bus.Close()
	}()

	runner := executor.New(registry, appCfg.Executor.toExecutorConfig())
	pool := worker.NewPool(jobQ, runner, store, bus, appCfg.Worker)

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "worker pool starting",
		zap.Int("size", appCfg.Worker.Size),
		zap.String("backend", appCfg.Queue.Backend),
		zap.Strings("languages", registry.Languages()))

	pool.Run(shutdownCtx)

	logger.Info(ctx, "worker pool stopped")
}
