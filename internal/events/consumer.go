package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
)

// Invalidator drops cached catalog state so the next read reloads it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer listens for catalog events and invalidates the local
// catalog snapshot.
type KafkaConsumer struct {
	reader  messageReader
	catalog Invalidator
	metrics *metrics.Metrics
	logger  *logging.Logger
	stopCh  chan struct{}
}

// NewKafkaConsumer creates a new Kafka-based event consumer. Every replica
// must see every event, so each one joins its own consumer group derived
// from the configured group and its stable replica ID. Restarts rejoin the
// same group.
func NewKafkaConsumer(cfg config.KafkaConfig, replica string, catalog Invalidator, m *metrics.Metrics, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.CatalogTopic,
		GroupID:     consumerGroupID(cfg, replica),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})

	return newKafkaConsumer(reader, catalog, m, logger)
}

func consumerGroupID(cfg config.KafkaConfig, replica string) string {
	return cfg.ConsumerGroup + "." + replica
}

func newKafkaConsumer(reader messageReader, catalog Invalidator, m *metrics.Metrics, logger *logging.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		catalog: catalog,
		metrics: m,
		logger:  logger.Named("catalog-consumer"),
		stopCh:  make(chan struct{}),
	}
}

// Start begins consuming events. It blocks until ctx is cancelled or Stop
// is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				select {
				case <-c.stopCh:
					c.logger.Info("Kafka consumer stopped")
					return nil
				default:
				}
				c.logger.Error("Failed to read message", logging.Fields{"error": err})
				continue
			}

			c.handleMessage(ctx, msg)
		}
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event CatalogEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err})
		return
	}

	switch event.Type {
	case EventTypePromoCodeUpserted, EventTypePromoCodeDeleted:
		c.metrics.CatalogEvents.WithLabelValues(string(event.Type), "in").Inc()
		c.logger.Info("Handling catalog event", logging.Fields{
			"event_id":       event.ID,
			"event_type":     event.Type,
			"code":           event.Code,
			"origin":         event.Origin,
			"correlation_id": event.CorrelationID,
		})
		if err := c.catalog.Invalidate(ctx); err != nil {
			c.logger.Error("Failed to invalidate catalog", logging.Fields{
				"event_id": event.ID,
				"error":    err,
			})
		}
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
	}
}
