// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pet-feeder/internal/feeder"
)

// Topic is the MQTT topic for feeder actuation events.
const Topic = "pets/feeder/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "pets/feeder/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishFeed sends a feeder actuation event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishFeed(event feeder.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Feeder FeederPayload `json:"feeder"`
}

// FeederPayload contains the actuation event details.
type FeederPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`             // FEED or RESET
	Trigger   string `json:"trigger,omitempty"` // MANUAL, AUTO, BUTTON (feed only)
	Duty      uint32 `json:"duty"`
}

// FormatPayload creates the JSON payload for a feeder actuation event.
func FormatPayload(event feeder.Event) ([]byte, error) {
	payload := Payload{
		Feeder: FeederPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Trigger:   string(event.Trigger),
			Duty:      event.Duty,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
