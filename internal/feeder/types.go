// Package feeder coordinates the servo, the configuration store, and the
// two schedulers. It is the single entry point for feed commands: HTTP
// handlers, the button loop, and scheduler callbacks all go through a
// Controller.
package feeder

import (
	"fmt"
	"time"

	"github.com/sweeney/pet-feeder/internal/config"
)

// Trigger identifies what initiated an actuation.
type Trigger string

const (
	TriggerManual Trigger = "MANUAL"
	TriggerAuto   Trigger = "AUTO"
	TriggerButton Trigger = "BUTTON"
)

// EventType represents an actuation event to be published.
type EventType string

const (
	EventFeed  EventType = "FEED"
	EventReset EventType = "RESET"
)

// Event records an actuation for publishing.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Trigger   Trigger // empty for RESET
	Duty      uint32
}

// Sink receives actuation events. Publish failures are logged by the
// controller and never block an actuation.
type Sink interface {
	PublishFeed(Event) error
}

// Counts tracks actuations since startup.
type Counts struct {
	ManualFeeds int
	AutoFeeds   int
	ButtonFeeds int
	Resets      int
}

// Total returns the number of feedings across all triggers.
func (c Counts) Total() int {
	return c.ManualFeeds + c.AutoFeeds + c.ButtonFeeds
}

// Role names a configurable servo position.
type Role string

const (
	RoleRest    Role = "rest"
	RoleFeed    Role = "feed"
	RoleCurrent Role = "current"
)

// ParseRole maps a wire name to a Role. "default" is accepted as an
// alias for "rest" so older phone shortcuts keep working.
func ParseRole(s string) (Role, error) {
	switch s {
	case "rest", "default":
		return RoleRest, nil
	case "feed":
		return RoleFeed, nil
	case "current":
		return RoleCurrent, nil
	default:
		return "", &config.ValidationError{
			Field:  "position",
			Reason: fmt.Sprintf("unknown position %q", s),
		}
	}
}

// Snapshot is a read-only view of controller state.
type Snapshot struct {
	Config      config.FeederConfig
	CurrentDuty uint32
	Counts      Counts
	Clamps      uint64
	ResetArmed  bool
	AutoEnabled bool
	StartTime   time.Time
	Now         time.Time
}

// Uptime returns the duration since the controller started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}
