package stream

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Errors
var (
	ErrClosed       = errors.New("push channel closed")
	ErrNotConnected = errors.New("not connected")
)

// State is the push channel's connection state.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Envelope is the wire format of every push message: a topic name plus
// an opaque payload the topic's handlers decode themselves.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler consumes the payload of a push message for one topic.
type Handler func(data json.RawMessage)

// Config configures the push channel client.
type Config struct {
	URL              string        // WebSocket URL (e.g. ws://localhost:8000/ws)
	AuthToken        string        // Bearer token for the handshake (empty = no auth)
	HandshakeTimeout time.Duration // Dial deadline
	WriteTimeout     time.Duration // Write deadline for control frames
	PingInterval     time.Duration // Keepalive ping cadence (0 = disabled)
}

// DefaultConfig returns sensible defaults for the given URL.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// DeriveURL converts an HTTP base URL into the matching push endpoint:
// http becomes ws, https becomes wss, and the /ws path is appended.
func DeriveURL(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
