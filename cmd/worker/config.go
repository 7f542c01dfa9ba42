package main

import (
	"fmt"
	"os"
	"time"

	"kodecompiler/internal/common/cache"
	"kodecompiler/internal/execution/executor"
	"kodecompiler/internal/execution/queue"
	"kodecompiler/internal/execution/worker"
	"kodecompiler/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

// Queue backend selectors.
const (
	backendRedis = "redis"
	backendKafka = "kafka"
)

// QueueConfig holds queue settings.
type QueueConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`
}

// ResultConfig holds result delivery settings.
type ResultConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// ExecutorConfig holds execution limits.
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

// LanguageSpec is one language entry in the worker config. Compile and run
// are shell-style command strings.
type LanguageSpec struct {
	ID        string `yaml:"id"`
	FileName  string `yaml:"fileName"`
	Compile   string `yaml:"compile"`
	Run       string `yaml:"run"`
	Toolchain string `yaml:"toolchain"`
}

// AppConfig holds worker config.
type AppConfig struct {
	Logger    logger.Config     `yaml:"logger"`
	Queue     QueueConfig       `yaml:"queue"`
	Redis     cache.RedisConfig `yaml:"redis"`
	Kafka     queue.KafkaConfig `yaml:"kafka"`
	Result    ResultConfig      `yaml:"result"`
	Worker    worker.Config     `yaml:"worker"`
	Executor  ExecutorConfig    `yaml:"executor"`
	Languages []LanguageSpec    `yaml:"languages"`
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
		cfg.Queue.Backend = backendRedis
	}
	switch cfg.Queue.Backend {
	case backendRedis:
	case backendKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required for the kafka backend")
		}
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Queue.Backend)
	}
	// Results always go through Redis regardless of the queue backend.
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	applyRedisDefaults(&cfg.Redis)
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

// buildRegistry turns the config language table into a registry, falling
// back to the default set when the table is empty.
func buildRegistry(specs []LanguageSpec) (*executor.Registry, error) {
	if len(specs) == 0 {
		return executor.DefaultRegistry(), nil
	}
	registry := executor.NewRegistry()
	for _, ls := range specs {
		compile, err := executor.ParseCommand(ls.Compile)
		if err != nil {
			return nil, err
		}
		run, err := executor.ParseCommand(ls.Run)
		if err != nil {
			return nil, err
		}
		spec := executor.Spec{
			ID:        ls.ID,
			FileName:  ls.FileName,
			Compile:   compile,
			Run:       run,
			Toolchain: ls.Toolchain,
		}
		if err := registry.Register(spec); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
