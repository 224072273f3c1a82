// Package transport declares the publish/subscribe and presence capabilities
// a participant consumes. Delivery is at least once with no ordering across
// publishers, and membership is eventually consistent.
package transport

import (
	"context"
	"encoding/json"
	"time"
)

type Message struct {
	Channel  string
	Name     string
	ClientID string
	Data     []byte
}

type Member struct {
	ClientID     string          `json:"clientId"`
	ConnectionID string          `json:"connectionId"`
	Data         json.RawMessage `json:"data,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Transport interface {
	ClientID() string
	Channel(name string) Channel
	Close() error
}

type Channel interface {
	Name() string
	Publish(ctx context.Context, name string, data []byte) error
	// Subscribe registers fn for every message on the channel, including the
	// subscriber's own publishes. fn must not block.
	Subscribe(fn func(Message)) (unsubscribe func())
	Presence() Presence
}

type Presence interface {
	Enter(ctx context.Context, data []byte) error
	Update(ctx context.Context, data []byte) error
	Leave(ctx context.Context) error
	Members(ctx context.Context) ([]Member, error)
	// OnChange registers fn for membership changes. fn must not block.
	OnChange(fn func()) (unsubscribe func())
}

// Lobby is the logical room creation API.
type Lobby interface {
	CreateRoom(ctx context.Context, roomID string) (string, error)
	JoinRoom(ctx context.Context, roomID string) error
}

// ChannelName scopes a room id to its channel.
func ChannelName(roomID string) string {
	return "room:" + roomID
}
