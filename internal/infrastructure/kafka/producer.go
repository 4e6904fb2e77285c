package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

const (
	// maxStoredErrors is the maximum number of errors to keep in memory
	// This prevents unbounded memory growth during long-running operations
	maxStoredErrors = 100

	// RoutingKeyHeader carries the routing key next to the message key
	RoutingKeyHeader = "routing_key"

	defaultCloseTimeout = 10 * time.Second
)

// ErrBrokerClosed is returned by Publish after Close
var ErrBrokerClosed = errors.New("kafka broker is closed")

// topicAdmin is the part of sarama.ClusterAdmin the broker needs
type topicAdmin interface {
	CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error
	Close() error
}

// Broker implements domain.EventBroker on Kafka. An exchange is a topic
// and the routing key is the message key.
type Broker struct {
	producer sarama.AsyncProducer
	admin    topicAdmin
	logger   zerolog.Logger

	partitions  int32
	replication int16

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
	closed    bool       // Indicates if broker has been closed
	closeMu   sync.Mutex // Protects closed and closeErr
	errors    []error    // Collect delivery errors
	errorsMu  sync.Mutex
}

// BrokerConfig holds configuration for the Kafka broker
type BrokerConfig struct {
	Brokers           []string       // Kafka broker addresses
	ClientID          string         // Client id reported to Kafka
	Logger            zerolog.Logger // Logger for monitoring
	MaxMessageBytes   int            // Max message size in bytes (default: 1MB)
	MaxRetries        int            // Max retries for failed sends (default: 5)
	Partitions        int32          // Partitions of declared topics (default: 1)
	ReplicationFactor int16          // Replication of declared topics (default: 1)
}

// NewBroker creates an async producer and a cluster admin for brokers
//
// Configuration highlights:
// - Asynchronous producer for high throughput
// - Snappy compression for bandwidth optimization
// - Idempotent mode for at-least-once delivery with deduplication
// - Hash partitioner on the routing key
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}

	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 1000000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "session-service"
	}

	config := sarama.NewConfig()

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.Compression = sarama.CompressionSnappy

	// Idempotent mode: at-least-once delivery with broker-side deduplication
	config.Producer.Idempotent = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Net.MaxOpenRequests = 1
	config.Producer.MaxMessageBytes = cfg.MaxMessageBytes
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Partitioner = sarama.NewHashPartitioner

	config.ClientID = cfg.ClientID
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, config)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("failed to create kafka cluster admin: %w", err)
	}

	b := newBroker(producer, admin, cfg.Logger)
	if cfg.Partitions > 0 {
		b.partitions = cfg.Partitions
	}
	if cfg.ReplicationFactor > 0 {
		b.replication = cfg.ReplicationFactor
	}

	cfg.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("client_id", cfg.ClientID).
		Int("max_message_bytes", cfg.MaxMessageBytes).
		Int("max_retries", cfg.MaxRetries).
		Msg("Kafka broker initialized successfully")

	return b, nil
}

func newBroker(producer sarama.AsyncProducer, admin topicAdmin, logger zerolog.Logger) *Broker {
	b := &Broker{
		producer:    producer,
		admin:       admin,
		logger:      logger,
		partitions:  1,
		replication: 1,
		errors:      make([]error, 0),
	}

	b.wg.Add(2)
	go b.handleSuccesses()
	go b.handleErrors()

	return b
}

// DeclareExchange creates the topic for name. An existing topic is fine.
func (b *Broker) DeclareExchange(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("exchange name is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.admin.CreateTopic(name, &sarama.TopicDetail{
		NumPartitions:     b.partitions,
		ReplicationFactor: b.replication,
	}, false)
	if err != nil && !topicExists(err) {
		return fmt.Errorf("failed to declare exchange %q: %w", name, err)
	}

	b.logger.Info().Str("exchange", name).Msg("Exchange declared")
	return nil
}

func topicExists(err error) bool {
	if errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return true
	}
	var topicErr *sarama.TopicError
	return errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists
}

// Publish queues body for exchange keyed by routingKey. Delivery errors
// are reported asynchronously and counted against broker health.
func (b *Broker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	if exchange == "" {
		return fmt.Errorf("exchange is required")
	}

	b.closeMu.Lock()
	closed := b.closed
	b.closeMu.Unlock()
	if closed {
		return ErrBrokerClosed
	}

	// Check context before expensive operations
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled before sending: %w", ctx.Err())
	default:
	}

	msg := &sarama.ProducerMessage{
		Topic: exchange,
		Key:   sarama.StringEncoder(routingKey),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte(RoutingKeyHeader), Value: []byte(routingKey)},
		},
	}

	select {
	case b.producer.Input() <- msg:
		b.logger.Debug().
			Str("exchange", exchange).
			Str("routing_key", routingKey).
			Msg("Message queued for sending to Kafka")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while sending message: %w", ctx.Err())
	}
}

func (b *Broker) handleSuccesses() {
	defer b.wg.Done()

	for msg := range b.producer.Successes() {
		b.logger.Debug().
			Str("topic", msg.Topic).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Message sent to Kafka successfully")
	}
}

func (b *Broker) handleErrors() {
	defer b.wg.Done()

	for producerErr := range b.producer.Errors() {
		b.logger.Error().
			Err(producerErr.Err).
			Str("topic", producerErr.Msg.Topic).
			Interface("key", producerErr.Msg.Key).
			Msg("Failed to send message to Kafka")

		b.errorsMu.Lock()
		if len(b.errors) < maxStoredErrors {
			b.errors = append(b.errors, producerErr.Err)
		} else if len(b.errors) == maxStoredErrors {
			b.logger.Warn().
				Int("max_errors", maxStoredErrors).
				Msg("Maximum stored errors limit reached, subsequent errors will be dropped")
			b.errors = append(b.errors, fmt.Errorf("max errors limit reached, subsequent errors dropped"))
		}
		b.errorsMu.Unlock()
	}
}

// IsHealthy returns true if the broker is open and delivery errors have
// not piled up
func (b *Broker) IsHealthy() bool {
	if b.producer == nil {
		return false
	}

	b.closeMu.Lock()
	isClosed := b.closed
	b.closeMu.Unlock()
	if isClosed {
		return false
	}

	b.errorsMu.Lock()
	errorCount := len(b.errors)
	b.errorsMu.Unlock()

	return errorCount < maxStoredErrors
}

// Close flushes pending messages and releases the producer and admin.
// It is idempotent.
func (b *Broker) Close() error {
	return b.CloseWithTimeout(defaultCloseTimeout)
}

// CloseWithTimeout closes the broker, waiting at most timeout for the
// delivery handlers to drain
func (b *Broker) CloseWithTimeout(timeout time.Duration) error {
	b.closeOnce.Do(func() {
		b.logger.Info().Dur("timeout", timeout).Msg("Closing Kafka broker")

		b.closeMu.Lock()
		b.closed = true
		b.closeMu.Unlock()

		var errs []error

		// Closing the producer flushes pending messages and closes its channels
		if err := b.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close failed: %w", err))
		}
		if b.admin != nil {
			if err := b.admin.Close(); err != nil {
				errs = append(errs, fmt.Errorf("admin close failed: %w", err))
			}
		}

		done := make(chan struct{})
		go func() {
			b.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			errs = append(errs, fmt.Errorf("close timeout after %s: handlers did not finish in time", timeout))
		}

		b.errorsMu.Lock()
		errorCount := len(b.errors)
		b.errorsMu.Unlock()
		if errorCount > 0 {
			errs = append(errs, fmt.Errorf("broker had %d send errors during operation", errorCount))
		}

		b.closeMu.Lock()
		b.closeErr = errors.Join(errs...)
		b.closeMu.Unlock()

		if len(errs) > 0 {
			b.logger.Error().Err(b.closeErr).Msg("Kafka broker closed with errors")
		} else {
			b.logger.Info().Msg("Kafka broker closed successfully")
		}
	})

	b.closeMu.Lock()
	defer b.closeMu.Unlock()
	return b.closeErr
}

var _ domain.EventBroker = (*Broker)(nil)
