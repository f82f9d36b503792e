package kafka

import (
	"context"
	"encoding/json"
	"strings"

	"factflow/internal/logger"

	kafkago "github.com/segmentio/kafka-go"
)

// Config holds Kafka connection settings
type Config struct {
	BootstrapServers string
	Topic            string
}

// Service publishes check job messages to Kafka
type Service struct {
	writer *kafkago.Writer
	config Config
}

// NewService creates a new Kafka service
func NewService(cfg Config) *Service {
	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers(cfg.BootstrapServers)...),
		Topic:    cfg.Topic,
		Balancer: &kafkago.LeastBytes{},
	}

	return &Service{
		writer: writer,
		config: cfg,
	}
}

// PublishCheckJob publishes a check job message to the configured topic
func (s *Service) PublishCheckJob(message interface{}) error {
	value, err := json.Marshal(message)
	if err != nil {
		return err
	}

	err = s.writer.WriteMessages(context.Background(), kafkago.Message{
		Value: value,
	})
	if err != nil {
		logger.LogErrorWithStack(err, map[string]interface{}{
			"topic":     s.config.Topic,
			"operation": "kafka_publish",
		})
		return err
	}

	return nil
}

// Close closes the Kafka writer
func (s *Service) Close() error {
	return s.writer.Close()
}

// Consumer reads check job messages from Kafka
type Consumer struct {
	reader *kafkago.Reader
}

// CreateConsumer creates a consumer group reader for the configured topic
func (s *Service) CreateConsumer(groupID string) (*Consumer, error) {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: brokers(s.config.BootstrapServers),
		GroupID: groupID,
		Topic:   s.config.Topic,
	})

	return &Consumer{reader: reader}, nil
}

// ReadMessage blocks until the next message arrives or the context is cancelled
func (c *Consumer) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	return c.reader.ReadMessage(ctx)
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func brokers(bootstrapServers string) []string {
	parts := strings.Split(bootstrapServers, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
