package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

// Publisher announces catalog changes to other replicas.
type Publisher interface {
	PublishPromoCodeUpserted(ctx context.Context, code string, discount pricing.Amount) error
	PublishPromoCodeDeleted(ctx context.Context, code string) error
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)

// EventType represents the type of catalog event.
type EventType string

const (
	EventTypePromoCodeUpserted EventType = "catalog.promo_code_upserted"
	EventTypePromoCodeDeleted  EventType = "catalog.promo_code_deleted"
)

// CatalogEvent represents a change to the promo catalog.
type CatalogEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Code          string         `json:"code"`
	Discount      pricing.Amount `json:"discount,omitempty"`
	Origin        string         `json:"origin"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes catalog events to Kafka.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	origin  string
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher. origin
// identifies this replica in the events it emits.
func NewKafkaPublisher(cfg config.KafkaConfig, origin string, m *metrics.Metrics, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.CatalogTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer, cfg.CatalogTopic, origin, m, logger)
}

func newKafkaPublisher(writer messageWriter, topic, origin string, m *metrics.Metrics, logger *logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		topic:   topic,
		origin:  origin,
		metrics: m,
		logger:  logger.Named("catalog-publisher"),
	}
}

// PublishPromoCodeUpserted publishes a promo code created or changed event.
func (p *KafkaPublisher) PublishPromoCodeUpserted(ctx context.Context, code string, discount pricing.Amount) error {
	p.logger.Debug("Publishing promo code upserted event", logging.Fields{
		"code":     code,
		"discount": int64(discount),
	})

	event := p.createEvent(ctx, EventTypePromoCodeUpserted, code)
	event.Discount = discount
	return p.publish(ctx, event)
}

// PublishPromoCodeDeleted publishes a promo code removal event.
func (p *KafkaPublisher) PublishPromoCodeDeleted(ctx context.Context, code string) error {
	p.logger.Debug("Publishing promo code deleted event", logging.Fields{"code": code})

	event := p.createEvent(ctx, EventTypePromoCodeDeleted, code)
	return p.publish(ctx, event)
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, code string) *CatalogEvent {
	return &CatalogEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Code:          code,
		Origin:        p.origin,
		Timestamp:     time.Now().UTC(),
		CorrelationID: middleware.RequestIDFrom(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *CatalogEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Code),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"code":       event.Code,
			"error":      err,
		})
		return err
	}

	p.metrics.CatalogEvents.WithLabelValues(string(event.Type), "out").Inc()
	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"code":       event.Code,
		"topic":      p.topic,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// MockEventPublisher records events instead of sending them.
type MockEventPublisher struct {
	Events []*CatalogEvent
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]*CatalogEvent, 0),
	}
}

func (m *MockEventPublisher) PublishPromoCodeUpserted(ctx context.Context, code string, discount pricing.Amount) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, &CatalogEvent{
		Type:     EventTypePromoCodeUpserted,
		Code:     code,
		Discount: discount,
	})
	return nil
}

func (m *MockEventPublisher) PublishPromoCodeDeleted(ctx context.Context, code string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, &CatalogEvent{
		Type: EventTypePromoCodeDeleted,
		Code: code,
	})
	return nil
}
