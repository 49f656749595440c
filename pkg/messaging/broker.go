package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event is the envelope published on lifecycle mutations so staff dashboards
// can refresh without polling.
type Event struct {
	Type    string      `json:"type"`
	UserID  string      `json:"user_id"`
	Payload interface{} `json:"payload"`
}
