package main

import (
	"fmt"
	"os"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/admission"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/worker"
	"kodecompiler/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8000"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 130 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Queue backend selectors.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendKafka  = "kafka"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// QueueConfig holds queue and admission settings.
type QueueConfig struct {
	Backend  string `yaml:"backend"`
	Key      string `yaml:"key"`
	MaxDepth int    `yaml:"maxDepth"`
}

// ResultConfig holds result delivery settings.
type ResultConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	SyncWait time.Duration `yaml:"syncWait"`
}

// ExecutorConfig holds execution limits for the embedded memory-mode worker.
type ExecutorConfig struct {
	RunTimeout     time.Duration `yaml:"runTimeout"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	MaxOutputLines int           `yaml:"maxOutputLines"`
	WorkRoot       string        `yaml:"workRoot"`
}

func (e ExecutorConfig) toExecutorConfig() executor.Config {
	return executor.Config{
		RunTimeout:     e.RunTimeout,
		CompileTimeout: e.CompileTimeout,
		MaxOutputLines: e.MaxOutputLines,
		WorkRoot:       e.WorkRoot,
	}
}

// AppConfig holds server config.
type AppConfig struct {
	Server   ServerConfig      `yaml:"server"`
	Logger   logger.Config     `yaml:"logger"`
	Queue    QueueConfig       `yaml:"queue"`
	Redis    cache.RedisConfig `yaml:"redis"`
	Kafka    queue.KafkaConfig `yaml:"kafka"`
	Result   ResultConfig      `yaml:"result"`
	Worker   worker.Config     `yaml:"worker"`
	Executor ExecutorConfig    `yaml:"executor"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = backendMemory
	}
	switch cfg.Queue.Backend {
	case backendMemory:
	case backendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis addr is required for the redis backend")
		}
	case backendKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required for the kafka backend")
		}
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis addr is required for result delivery with the kafka backend")
		}
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Queue.Backend)
	}
	applyRedisDefaults(&cfg.Redis)
	if cfg.Queue.MaxDepth <= 0 {
		cfg.Queue.MaxDepth = admission.DefaultMaxDepth
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		// Must outlast the sync wait or handlers get cut off mid-response.
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Worker.Size <= 0 {
		cfg.Worker.Size = 4
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	if cfg == nil {
		return
	}
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}
