package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// WindowID is the key of the singleton window row.
const WindowID int64 = 1

type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
)

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
	ActionReset Action = "reset"
)

type Window struct {
	ID          int64      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	WindowStart time.Time  `gorm:"not null" json:"window_start"`
	IsClosed    bool       `gorm:"not null;default:false" json:"is_closed"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	ClosedBy    *string    `gorm:"type:varchar(128)" json:"closed_by,omitempty"`
	Version     int64      `gorm:"not null" json:"version"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (Window) TableName() string { return "cutoff_windows" }

func (w Window) State() State {
	if w.IsClosed {
		return StateClosed
	}
	return StateOpen
}

// Snapshot is the read model handed to order placement.
type Snapshot struct {
	WindowStart time.Time  `json:"window_start"`
	IsClosed    bool       `json:"is_closed"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	ClosedBy    string     `json:"closed_by,omitempty"`
	State       State      `json:"state"`
	Version     int64      `json:"version"`
}

func (w Window) Snapshot() Snapshot {
	snap := Snapshot{
		WindowStart: w.WindowStart,
		IsClosed:    w.IsClosed,
		ClosedAt:    w.ClosedAt,
		State:       w.State(),
		Version:     w.Version,
	}
	if w.ClosedBy != nil {
		snap.ClosedBy = *w.ClosedBy
	}
	return snap
}

// Event is the audit trail of window transitions.
type Event struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Action      Action       `gorm:"type:varchar(16);not null" json:"action"`
	Actor       string       `gorm:"type:varchar(128);not null" json:"actor"`
	WindowStart time.Time    `gorm:"not null" json:"window_start"`
	ClosedAt    *time.Time   `json:"closed_at,omitempty"`
	OccurredAt  time.Time    `gorm:"not null;index" json:"occurred_at"`
}

func (Event) TableName() string { return "cutoff_events" }
