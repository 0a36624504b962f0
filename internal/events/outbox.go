package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradebook/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	EventSettlementCompleted = "settlement.completed"
	EventPaymentRecorded     = "payment.recorded"
)

// Event is what producers enqueue. DedupeKey makes enqueueing idempotent.
type Event struct {
	Type        string
	AggregateID snowflake.ID
	DedupeKey   string
	Payload     map[string]any
}

// Record is the stored outbox row.
type Record struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType   string            `gorm:"type:varchar(64);not null;index" json:"event_type"`
	AggregateID snowflake.ID      `gorm:"not null;index" json:"aggregate_id"`
	DedupeKey   string            `gorm:"type:varchar(128);not null;uniqueIndex" json:"dedupe_key"`
	Payload     datatypes.JSONMap `gorm:"type:json" json:"payload"`
	Attempts    int               `gorm:"not null;default:0" json:"attempts"`
	LastError   string            `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
	PublishedAt *time.Time        `gorm:"index" json:"published_at,omitempty"`
}

func (Record) TableName() string { return "outbox_events" }

type Outbox struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{genID: genID, clock: clk}
}

// PublishTx stores evt in tx so it commits or rolls back with the business
// write that produced it.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, evt Event) error {
	if o == nil {
		return nil
	}
	if tx == nil {
		return errors.New("outbox requires a transaction")
	}
	eventType := strings.TrimSpace(evt.Type)
	dedupe := strings.TrimSpace(evt.DedupeKey)
	if eventType == "" || dedupe == "" {
		return errors.New("outbox event type and dedupe key are required")
	}

	payload := datatypes.JSONMap{}
	for k, v := range evt.Payload {
		payload[k] = v
	}
	record := Record{
		ID:          o.genID.Generate(),
		EventType:   eventType,
		AggregateID: evt.AggregateID,
		DedupeKey:   dedupe,
		Payload:     payload,
		CreatedAt:   o.clock.Now(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(&record).Error
}
