// Package events carries newly collected activities to the downstream
// sink. The wire format beyond the field list is the relay's concern, not
// ours; publishers only guarantee that every event is recorded once.
package events

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// Event is the message published for each newly collected activity.
type Event struct {
	ActivityID   string         `json:"activityId"`
	ActivityType string         `json:"activityType"`
	ActorID      string         `json:"actorId"`
	ObjectID     string         `json:"objectId"`
	ObjectType   string         `json:"objectType"`
	Content      string         `json:"content"`
	PublishedAt  *time.Time     `json:"publishedAt"`
	InstanceURL  string         `json:"instanceUrl"`
	TagID        string         `json:"tagId"`
	RawData      map[string]any `json:"rawData"`
}

// Publisher delivers events downstream.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// LogPublisher writes each event to the process log. Used by one-shot
// commands where no relay is running.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event *Event) error {
	log.Printf("event: %s %s by %s on %s (tag %s)", event.ActivityType, event.ActivityID, event.ActorID, event.InstanceURL, event.TagID)
	return nil
}

// Outbox is one undelivered event. An external relay drains the table,
// bumping attempts/last_result on failure and deleting the row on success.
type Outbox struct {
	ID          uint32 `gorm:"primarykey"`
	CreatedAt   time.Time
	ActivityID  string `gorm:"size:512;index;not null"`
	TagID       string `gorm:"size:64;index"`
	Payload     *Event `gorm:"serializer:json;not null"`
	Attempts    int    `gorm:"default:0;not null"`
	LastAttempt *time.Time
	LastResult  string
}

func (Outbox) TableName() string {
	return "event_outbox"
}

// OutboxPublisher stores events in the event_outbox table.
type OutboxPublisher struct {
	db *gorm.DB
}

func NewOutboxPublisher(db *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{db: db}
}

func (p *OutboxPublisher) Publish(ctx context.Context, event *Event) error {
	return p.db.WithContext(ctx).Create(&Outbox{
		ActivityID: event.ActivityID,
		TagID:      event.TagID,
		Payload:    event,
	}).Error
}
