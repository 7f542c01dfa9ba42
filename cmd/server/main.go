package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/admission"
	"kodecompiler/internal/execution/delivery"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/model"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/worker"
	"kodecompiler/internal/server"
	"kodecompiler/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/server.yaml"

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

	var (
		store  *delivery.Store
		bus    delivery.Bus
		jobQ   queue.Queue
		closer []func()
	)

	switch appCfg.Queue.Backend {
	case backendMemory:
		memCache := cache.NewMemoryCache()
		store = delivery.NewStore(memCache, appCfg.Result.TTL)
		bus = delivery.NewMemoryBus()
		jobQ = queue.NewMemoryQueue()
	case backendRedis, backendKafka:
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(ctx, "init redis failed", zap.Error(err))
			return
		}
		closer = append(closer, func() { _ = redisCache.Close() })
		store = delivery.NewStore(redisCache, appCfg.Result.TTL)
		redisBus := delivery.NewRedisBus(redisCache.Client())
		closer = append(closer, func() { _ = redisBus.Close() })
		bus = redisBus

		if appCfg.Queue.Backend == backendRedis {
			jobQ = queue.NewRedisQueue(redisCache, appCfg.Queue.Key)
		} else {
			kafkaQ, err := queue.NewKafkaQueue(appCfg.Kafka)
			if err != nil {
				logger.Error(ctx, "init kafka failed", zap.Error(err))
				return
			}
			jobQ = kafkaQ
		}
	}
	defer func() {
		_ = jobQ.Close()
		for i := len(closer) - 1; i >= 0; i-- {
			closer[i]()
		}
	}()

	limiter := admission.NewLimiter(jobQ, appCfg.Queue.MaxDepth)
	waiter := delivery.NewWaiter()
	conns := delivery.NewConnRegistry()
	registry := executor.DefaultRegistry()

	svc := server.NewExecuteService(registry, jobQ, limiter, store, waiter, conns, appCfg.Result.SyncWait)
	wsHandler := server.NewWSHandler(svc, conns)
	handler := server.NewHandler(svc, wsHandler)

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Terminal events resolve sync waiters and push to bound WebSockets;
	// start events only push.
	err = bus.Subscribe(shutdownCtx, model.ChannelJobResults, func(ctx context.Context, env *model.Envelope) {
		if env.Result != nil {
			waiter.Resolve(env.JobID, env.Result)
		}
		_ = conns.SendToJob(ctx, env.JobID, env, true)
	})
	if err != nil {
		logger.Error(ctx, "subscribe job results failed", zap.Error(err))
		return
	}
	err = bus.Subscribe(shutdownCtx, model.ChannelJobStatus, func(ctx context.Context, env *model.Envelope) {
		_ = conns.SendToJob(ctx, env.JobID, env, false)
	})
	if err != nil {
		logger.Error(ctx, "subscribe job status failed", zap.Error(err))
		return
	}

	// Memory mode has no external workers; run the pool in process.
	if appCfg.Queue.Backend == backendMemory {
		runner := executor.New(registry, appCfg.Executor.toExecutorConfig())
		pool := worker.NewPool(jobQ, runner, store, bus, appCfg.Worker)
		go pool.Run(shutdownCtx)
	}

	httpServer := buildHTTPServer(appCfg.Server, handler)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(ctx, "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("backend", appCfg.Queue.Backend))
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, handler *server.Handler) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	handler.RegisterRoutes(router)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
