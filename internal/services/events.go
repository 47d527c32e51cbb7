package services

import (
	"time"

	"roomfinder/internal/models"
)

// EventPublisher fans live events out to connected clients.
type EventPublisher interface {
	Publish(e models.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(models.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

func newEvent(kind string, userID int) models.Event {
	return models.Event{Type: kind, UserID: userID, CreatedAt: time.Now().UTC()}
}
