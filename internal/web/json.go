package web

import (
	"encoding/json"

	"github.com/sweeney/pet-feeder/internal/feeder"
	"github.com/sweeney/pet-feeder/internal/servo"
)

// setPWMRequest is the body of POST /set_pwm. Pointer fields distinguish
// "absent" from zero; the original device treated both pwm and delay as
// optional.
type setPWMRequest struct {
	PWM      *uint32 `json:"pwm"`
	Position string  `json:"position"`
	Delay    *int64  `json:"delay"` // milliseconds
}

// settingsResponse is returned by /settings and /set_pwm.
type settingsResponse struct {
	Message         string `json:"message,omitempty"`
	CurrentDuty     uint32 `json:"current_duty"`
	RestDuty        uint32 `json:"rest_duty"`
	FeedDuty        uint32 `json:"feed_duty"`
	ResetDelayMs    int64  `json:"reset_delay_ms"`
	AutoFeedMinutes int    `json:"auto_feed_minutes"`
	MinDuty         uint32 `json:"min_duty"`
	MaxDuty         uint32 `json:"max_duty"`
}

func buildSettings(snap feeder.Snapshot, message string) settingsResponse {
	return settingsResponse{
		Message:         message,
		CurrentDuty:     snap.CurrentDuty,
		RestDuty:        snap.Config.RestDuty,
		FeedDuty:        snap.Config.FeedDuty,
		ResetDelayMs:    snap.Config.ResetDelay.Milliseconds(),
		AutoFeedMinutes: snap.Config.AutoFeedMinutes,
		MinDuty:         servo.MinDuty,
		MaxDuty:         servo.MaxDuty,
	}
}

func formatSettings(snap feeder.Snapshot, message string) []byte {
	data, _ := json.MarshalIndent(buildSettings(snap, message), "", "  ")
	return data
}
