package events

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultStream = "tradebook:events"

// Publisher hands a stored event to downstream consumers such as the
// print/notify workflow.
type Publisher interface {
	Publish(ctx context.Context, record Record) error
}

// NewPublisher streams to redis when a client is configured and only logs
// otherwise.
func NewPublisher(client *redis.Client, log *zap.Logger) Publisher {
	if client == nil {
		return &LogPublisher{log: log.Named("events.publisher")}
	}
	return &RedisStreamPublisher{client: client, stream: DefaultStream}
}

type RedisStreamPublisher struct {
	client *redis.Client
	stream string
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":           record.ID.String(),
			"type":         record.EventType,
			"aggregate_id": record.AggregateID.String(),
			"dedupe_key":   record.DedupeKey,
			"payload":      string(payload),
		},
	}).Err()
}

type LogPublisher struct {
	log *zap.Logger
}

func (p *LogPublisher) Publish(_ context.Context, record Record) error {
	p.log.Info("event published",
		zap.String("event_id", record.ID.String()),
		zap.String("event_type", record.EventType),
		zap.String("aggregate_id", record.AggregateID.String()),
	)
	return nil
}
