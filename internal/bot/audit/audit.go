package audit

import (
	"context"
	"time"
)

type EventType string

const (
	EventPostScheduled EventType = "post_scheduled"
	EventPostPublished EventType = "post_published"
	EventPostFailed    EventType = "post_failed"
	EventPostCanceled  EventType = "post_canceled"
)

const (
	SourceImmediate = "immediate"
	SourceScheduled = "scheduled"
)

// Event - запись журнала публикаций.
type Event struct {
	Type   EventType `json:"type"`
	ChatID int64     `json:"chatId"`
	Source string    `json:"source"`
	JobID  string    `json:"jobId,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

func NewEvent(eventType EventType, chatID int64, source, jobID string, err error) Event {
	event := Event{
		Type:   eventType,
		ChatID: chatID,
		Source: source,
		JobID:  jobID,
		Time:   time.Now().UTC(),
	}

	if err != nil {
		event.Error = err.Error()
	}

	return event
}

// Sink принимает события публикаций. Ошибка записи не должна влиять на диалог с оператором.
type Sink interface {
	Record(ctx context.Context, event Event) error
}
