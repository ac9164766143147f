package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/pet-feeder/internal/feeder"
	"github.com/sweeney/pet-feeder/internal/servo"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	CurrentDuty   uint32       `json:"current_duty"`
	Feeding       bool         `json:"feeding"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Servo         ServoJSON    `json:"servo"`
	Schedule      ScheduleJSON `json:"schedule"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of actuation counts.
type CountsJSON struct {
	ManualFeeds int `json:"manual_feeds"`
	AutoFeeds   int `json:"auto_feeds"`
	ButtonFeeds int `json:"button_feeds"`
	TotalFeeds  int `json:"total_feeds"`
	Resets      int `json:"resets"`
}

// ServoJSON is the JSON representation of servo configuration and state.
type ServoJSON struct {
	RestDuty     uint32 `json:"rest_duty"`
	FeedDuty     uint32 `json:"feed_duty"`
	ResetDelayMs int64  `json:"reset_delay_ms"`
	MinDuty      uint32 `json:"min_duty"`
	MaxDuty      uint32 `json:"max_duty"`
	Clamps       uint64 `json:"clamps"`
}

// ScheduleJSON is the JSON representation of the auto-feed schedule.
type ScheduleJSON struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string `json:"broker,omitempty"`
	HTTPAddr    string `json:"http_addr"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	ButtonPin   int    `json:"button_pin"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
}

func buildInner(snap Snapshot, feed feeder.Snapshot) StatusInner {
	return StatusInner{
		CurrentDuty:   feed.CurrentDuty,
		Feeding:       feed.ResetArmed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ManualFeeds: feed.Counts.ManualFeeds,
			AutoFeeds:   feed.Counts.AutoFeeds,
			ButtonFeeds: feed.Counts.ButtonFeeds,
			TotalFeeds:  feed.Counts.Total(),
			Resets:      feed.Counts.Resets,
		},
		Servo: ServoJSON{
			RestDuty:     feed.Config.RestDuty,
			FeedDuty:     feed.Config.FeedDuty,
			ResetDelayMs: feed.Config.ResetDelay.Milliseconds(),
			MinDuty:      servo.MinDuty,
			MaxDuty:      servo.MaxDuty,
			Clamps:       feed.Clamps,
		},
		Schedule: ScheduleJSON{
			Enabled:         feed.AutoEnabled,
			IntervalMinutes: feed.Config.AutoFeedMinutes,
		},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			HeartbeatMs: snap.Config.HeartbeatMs,
			ButtonPin:   snap.Config.ButtonPin,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot, feed feeder.Snapshot) []byte {
	inner := buildInner(snap, feed)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, feed feeder.Snapshot, event, reason string) []byte {
	inner := buildInner(snap, feed)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
