package messaging

import (
	"context"
)

// Broker publishes JSON messages on named channels.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the wrapper every published payload travels in.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
