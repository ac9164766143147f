package config

import (
	"sync"
	"time"

	"github.com/sweeney/pet-feeder/internal/servo"
)

// Snapshot is a point-in-time copy of the configuration plus the servo's
// last commanded duty. It is a value type — safe to use after the lock is
// released.
type Snapshot struct {
	FeederConfig
	CurrentDuty uint32
}

// Store guards FeederConfig and the current duty behind one mutex. Each
// setter validates before committing; on failure the store is unchanged.
// The lock is only held for the validate-and-write, never across hardware
// I/O or timer calls.
type Store struct {
	mu      sync.Mutex
	cfg     FeederConfig
	current uint32
}

// NewStore creates a Store from the given initial configuration.
// Out-of-range initial values are normalized rather than rejected, so a
// bad flag cannot prevent startup: duties are clamped, a non-positive
// delay falls back to DefaultResetDelay, a negative interval disables
// the schedule.
func NewStore(cfg FeederConfig) *Store {
	cfg.RestDuty, _ = servo.Clamp(cfg.RestDuty)
	cfg.FeedDuty, _ = servo.Clamp(cfg.FeedDuty)
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if cfg.AutoFeedMinutes < 0 {
		cfg.AutoFeedMinutes = 0
	}
	return &Store{
		cfg:     cfg,
		current: cfg.RestDuty,
	}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() FeederConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Snapshot returns the configuration together with the current duty.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{FeederConfig: s.cfg, CurrentDuty: s.current}
}

// SetRestDuty validates and commits a new rest position.
// Returns the post-commit configuration, or a *ValidationError.
func (s *Store) SetRestDuty(duty uint32) (FeederConfig, error) {
	if err := validateDuty("rest", duty); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.RestDuty = duty
	return s.cfg, nil
}

// SetFeedDuty validates and commits a new feed position.
func (s *Store) SetFeedDuty(duty uint32) (FeederConfig, error) {
	if err := validateDuty("feed", duty); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.FeedDuty = duty
	return s.cfg, nil
}

// SetResetDelay validates and commits a new reset delay. An in-flight
// countdown is not affected; the new delay applies on the next arm.
func (s *Store) SetResetDelay(d time.Duration) (FeederConfig, error) {
	if err := validateResetDelay(d); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ResetDelay = d
	return s.cfg, nil
}

// SetAutoFeedMinutes validates and commits a new recurring interval.
// 0 is valid and means disabled.
func (s *Store) SetAutoFeedMinutes(m int) (FeederConfig, error) {
	if err := validateAutoFeedMinutes(m); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.AutoFeedMinutes = m
	return s.cfg, nil
}

// SetCurrent records the servo's last commanded duty.
func (s *Store) SetCurrent(duty uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = duty
}

// Current returns the servo's last commanded duty.
func (s *Store) Current() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
