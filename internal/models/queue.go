package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Queue job lifecycle states. Completed and failed-after-exhaustion are
// terminal.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// DefaultMaxAttempts applies when an enqueue request does not set its own.
const DefaultMaxAttempts = 3

// EventPayload wraps NotificationEvent for jsonb storage.
type EventPayload struct {
	NotificationEvent
}

func (p EventPayload) Value() (driver.Value, error) {
	raw, err := json.Marshal(p.NotificationEvent)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return string(raw), nil
}

func (p *EventPayload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("event payload: unsupported column type")
	}
	return json.Unmarshal(raw, &p.NotificationEvent)
}

// NotificationJob is one row in the durable delivery queue. The table is
// the sole authority on delivery state; workers never carry job state in
// memory across invocations.
type NotificationJob struct {
	ID           string       `gorm:"type:uuid;primaryKey" json:"id"`
	Payload      EventPayload `gorm:"type:jsonb;not null" json:"payload"`
	Status       string       `gorm:"not null;default:pending;index" json:"status"`
	Priority     int          `gorm:"not null;default:0" json:"priority"`
	Attempts     int          `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts  int          `gorm:"not null;default:3" json:"max_attempts"`
	ScheduledAt  time.Time    `gorm:"not null;index" json:"scheduled_at"`
	ProcessingAt *time.Time   `json:"processing_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	FailedAt     *time.Time   `json:"failed_at,omitempty"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (NotificationJob) TableName() string {
	return "notification_queue"
}

// QueueStats is the per-status job count snapshot.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
