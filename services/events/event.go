package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeUserRegistered = "USER_REGISTERED"
	TypeUserLogin      = "USER_LOGIN"
)

const eventVersion = "1.0"

type Event struct {
	ID        string         `json:"eventId"`
	Type      string         `json:"eventType"`
	Version   string         `json:"eventVersion"`
	Source    string         `json:"sourceService"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"userId"`
	Username  string         `json:"username"`
	Email     string         `json:"email,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

func newEvent(eventType, source string, userID uuid.UUID, username string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Version:   eventVersion,
		Source:    source,
		Timestamp: time.Now().UTC(),
		UserID:    userID.String(),
		Username:  username,
	}
}

// Client describes the caller of a login request.
type Client struct {
	IPAddress string
	UserAgent string
}
