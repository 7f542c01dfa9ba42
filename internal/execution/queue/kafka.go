package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig defines configuration for the Kafka queue backend.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	ClientID      string   `yaml:"clientId"`

	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	MinBytes     int           `yaml:"minBytes"`
	MaxBytes     int           `yaml:"maxBytes"`
	MaxWait      time.Duration `yaml:"maxWait"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
}

func (cfg *KafkaConfig) setDefaults() {
	if cfg.Topic == "" {
		cfg.Topic = "execution_jobs"
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "kodecompiler-workers"
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1 << 10
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = time.Second
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
}

// KafkaQueue carries jobs over a Kafka topic. Offsets are committed right
// after fetch, matching the at-most-once behavior of the other backends.
// Kafka cannot report waiting plus in-flight counts, so Depth returns
// ErrDepthUnknown and admission stays open.
type KafkaQueue struct {
	config KafkaConfig
	writer *kafka.Writer
	dialer *kafka.Dialer

	mu     sync.Mutex
	reader *kafka.Reader
	closed bool
}

func NewKafkaQueue(cfg KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("brokers are required")
	}
	cfg.setDefaults()

	dialer := &kafka.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Transport: &kafka.Transport{
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, address)
			},
			ClientID: cfg.ClientID,
		},
	}

	return &KafkaQueue{
		config: cfg,
		writer: writer,
		dialer: dialer,
	}, nil
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalError, "marshal job: %v", err)
	}
	msg := kafka.Message{
		Key:   []byte(job.ID),
		Value: data,
		Time:  time.Now(),
	}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return appErr.Wrapf(err, appErr.QueueUnavailable, "enqueue job: %v", err)
	}
	return nil
}

func (q *KafkaQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error) {
	reader, err := q.consumer()
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msg, err := reader.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, appErr.Wrapf(err, appErr.QueueUnavailable, "dequeue job: %v", err)
	}
	if err := reader.CommitMessages(ctx, msg); err != nil {
		return nil, appErr.Wrapf(err, appErr.QueueUnavailable, "commit offset: %v", err)
	}

	var job model.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalError, "unmarshal job: %v", err)
	}
	return &job, nil
}

// Complete is a no-op: the offset was committed at dequeue time.
func (q *KafkaQueue) Complete(ctx context.Context) error {
	return nil
}

func (q *KafkaQueue) Depth(ctx context.Context) (int, error) {
	return 0, ErrDepthUnknown
}

func (q *KafkaQueue) Ping(ctx context.Context) error {
	conn, err := q.dialer.DialContext(ctx, "tcp", q.config.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (q *KafkaQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	if q.reader != nil {
		_ = q.reader.Close()
	}
	return q.writer.Close()
}

func (q *KafkaQueue) consumer() (*kafka.Reader, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, appErr.New(appErr.QueueClosed)
	}
	if q.reader == nil {
		q.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     q.config.Brokers,
			Topic:       q.config.Topic,
			GroupID:     q.config.ConsumerGroup,
			MinBytes:    q.config.MinBytes,
			MaxBytes:    q.config.MaxBytes,
			MaxWait:     q.config.MaxWait,
			StartOffset: kafka.LastOffset,
			Dialer:      q.dialer,
		})
	}
	return q.reader, nil
}
