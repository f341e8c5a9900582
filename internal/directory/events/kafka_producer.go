// Package events publishes directory change events to Kafka and reads them
// back for consumers such as the event log.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated    EventType = "company_created"
	CompanyUpdated    EventType = "company_updated"
	CompanyDeleted    EventType = "company_deleted"
	CompanyRegistered EventType = "company_registered"
	RegionCreated     EventType = "region_created"
	RegionUpdated     EventType = "region_updated"
	RegionDeleted     EventType = "region_deleted"
	LocationCreated   EventType = "location_created"
	LocationUpdated   EventType = "location_updated"
	LocationDeleted   EventType = "location_deleted"
	ServiceCreated    EventType = "service_created"
	ServiceUpdated    EventType = "service_updated"
	ServiceDeleted    EventType = "service_deleted"
	UserRegistered    EventType = "user_registered"
	UserUpdated       EventType = "user_updated"
	UserDeleted       EventType = "user_deleted"
)

// Entity is the kind of record the event is about, e.g. "company".
func (t EventType) Entity() string {
	entity, _, _ := strings.Cut(string(t), "_")
	return entity
}

// Event is the envelope written to the topic.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	EntityID   uint      `json:"entity_id"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key is the partition key of the event. All changes of one record share a
// key and so stay ordered.
func (ev Event) Key() string {
	return ev.Type.Entity() + ":" + strconv.FormatUint(uint64(ev.EntityID), 10)
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

// NewProducer creates the topic if needed and starts the send loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	}

	err = conn.CreateTopics(topicConfigs...)
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}
	p := newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, 1000)

	go p.eventLoop()
	return p, nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

// Produce queues an event without blocking. When the queue is full the
// event is dropped and logged.
func (p *Producer) Produce(eventType EventType, entityID uint, payload any) {
	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		EntityID:   entityID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Uint("entity_id", entityID),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_id", event.ID.String()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Uint("entity_id", event.EntityID),
		)
		return
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// Nop discards every event. It stands in for the Kafka producer when no
// brokers are configured.
type Nop struct{}

func (Nop) Produce(EventType, uint, any) {}
