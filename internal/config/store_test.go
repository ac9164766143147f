package config

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pet-feeder/internal/servo"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.RestDuty != servo.DefaultRestDuty {
		t.Errorf("RestDuty: got %d, want %d", cfg.RestDuty, servo.DefaultRestDuty)
	}
	if cfg.FeedDuty != servo.DefaultFeedDuty {
		t.Errorf("FeedDuty: got %d, want %d", cfg.FeedDuty, servo.DefaultFeedDuty)
	}
	if cfg.ResetDelay != DefaultResetDelay {
		t.Errorf("ResetDelay: got %v, want %v", cfg.ResetDelay, DefaultResetDelay)
	}
	if cfg.AutoFeedMinutes != 0 {
		t.Errorf("AutoFeedMinutes: got %d, want 0 (disabled)", cfg.AutoFeedMinutes)
	}
}

func TestNewStoreNormalizesBadValues(t *testing.T) {
	s := NewStore(FeederConfig{
		RestDuty:        9999,
		FeedDuty:        1,
		ResetDelay:      -5 * time.Second,
		AutoFeedMinutes: -3,
	})

	cfg := s.Get()
	if cfg.RestDuty != servo.MaxDuty {
		t.Errorf("RestDuty: got %d, want clamped %d", cfg.RestDuty, servo.MaxDuty)
	}
	if cfg.FeedDuty != servo.MinDuty {
		t.Errorf("FeedDuty: got %d, want clamped %d", cfg.FeedDuty, servo.MinDuty)
	}
	if cfg.ResetDelay != DefaultResetDelay {
		t.Errorf("ResetDelay: got %v, want default %v", cfg.ResetDelay, DefaultResetDelay)
	}
	if cfg.AutoFeedMinutes != 0 {
		t.Errorf("AutoFeedMinutes: got %d, want 0", cfg.AutoFeedMinutes)
	}
}

func TestNewStoreCurrentStartsAtRest(t *testing.T) {
	s := NewStore(Default())
	if s.Current() != servo.DefaultRestDuty {
		t.Errorf("Current: got %d, want rest duty %d", s.Current(), servo.DefaultRestDuty)
	}
}

func TestSetters(t *testing.T) {
	s := NewStore(Default())

	cfg, err := s.SetRestDuty(320)
	if err != nil {
		t.Fatalf("SetRestDuty(320): %v", err)
	}
	if cfg.RestDuty != 320 {
		t.Errorf("returned config RestDuty: got %d, want 320", cfg.RestDuty)
	}

	if _, err := s.SetFeedDuty(200); err != nil {
		t.Fatalf("SetFeedDuty(200): %v", err)
	}
	if _, err := s.SetResetDelay(5 * time.Second); err != nil {
		t.Fatalf("SetResetDelay(5s): %v", err)
	}
	if _, err := s.SetAutoFeedMinutes(60); err != nil {
		t.Fatalf("SetAutoFeedMinutes(60): %v", err)
	}

	cfg = s.Get()
	if cfg.RestDuty != 320 || cfg.FeedDuty != 200 {
		t.Errorf("duties: got rest=%d feed=%d, want 320/200", cfg.RestDuty, cfg.FeedDuty)
	}
	if cfg.ResetDelay != 5*time.Second {
		t.Errorf("ResetDelay: got %v, want 5s", cfg.ResetDelay)
	}
	if cfg.AutoFeedMinutes != 60 {
		t.Errorf("AutoFeedMinutes: got %d, want 60", cfg.AutoFeedMinutes)
	}
}

func TestValidationFailuresLeaveStoreUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		field string
		run   func(s *Store) error
	}{
		{"rest below min", "rest", func(s *Store) error {
			_, err := s.SetRestDuty(servo.MinDuty - 1)
			return err
		}},
		{"rest above max", "rest", func(s *Store) error {
			_, err := s.SetRestDuty(servo.MaxDuty + 1)
			return err
		}},
		{"feed above max", "feed", func(s *Store) error {
			_, err := s.SetFeedDuty(10000)
			return err
		}},
		{"zero delay", "reset_delay", func(s *Store) error {
			_, err := s.SetResetDelay(0)
			return err
		}},
		{"negative delay", "reset_delay", func(s *Store) error {
			_, err := s.SetResetDelay(-time.Second)
			return err
		}},
		{"negative interval", "auto_feed_minutes", func(s *Store) error {
			_, err := s.SetAutoFeedMinutes(-1)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Default())
			before := s.Get()

			err := tt.run(s)
			if err == nil {
				t.Fatal("expected validation error")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field: got %q, want %q", verr.Field, tt.field)
			}

			if s.Get() != before {
				t.Errorf("store changed after rejected update: got %+v, want %+v", s.Get(), before)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := NewStore(Default()).SetAutoFeedMinutes(-1)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "auto_feed_minutes: interval -1 must not be negative"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}

// TestNoTornReads hammers the store from writers flipping between two
// complete configurations while readers check that every snapshot matches
// one of them — never a mix.
func TestNoTornReads(t *testing.T) {
	a := FeederConfig{RestDuty: 307, FeedDuty: 256, ResetDelay: 2 * time.Second, AutoFeedMinutes: 0}
	b := FeederConfig{RestDuty: 410, FeedDuty: 150, ResetDelay: 5 * time.Second, AutoFeedMinutes: 30}

	s := NewStore(a)

	writeAll := func(cfg FeederConfig) {
		s.SetRestDuty(cfg.RestDuty)
		s.SetFeedDuty(cfg.FeedDuty)
		s.SetResetDelay(cfg.ResetDelay)
		s.SetAutoFeedMinutes(cfg.AutoFeedMinutes)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				writeAll(a)
			} else {
				writeAll(b)
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				cfg := s.Get()
				// Individual fields are written under separate setter
				// calls, so check each field is from one of the two
				// known configurations — a torn struct copy would show
				// a value from neither.
				validRest := cfg.RestDuty == a.RestDuty || cfg.RestDuty == b.RestDuty
				validFeed := cfg.FeedDuty == a.FeedDuty || cfg.FeedDuty == b.FeedDuty
				validDelay := cfg.ResetDelay == a.ResetDelay || cfg.ResetDelay == b.ResetDelay
				validMin := cfg.AutoFeedMinutes == a.AutoFeedMinutes || cfg.AutoFeedMinutes == b.AutoFeedMinutes
				if !validRest || !validFeed || !validDelay || !validMin {
					t.Errorf("torn read: %+v", cfg)
					return
				}
			}
		}()
	}

	// Let readers finish, then stop the writer.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	// Writer loops until stop; readers are bounded. Signal stop once the
	// readers have had time to run.
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done
}

func TestSetCurrent(t *testing.T) {
	s := NewStore(Default())
	s.SetCurrent(256)
	if s.Current() != 256 {
		t.Errorf("Current: got %d, want 256", s.Current())
	}

	snap := s.Snapshot()
	if snap.CurrentDuty != 256 {
		t.Errorf("Snapshot.CurrentDuty: got %d, want 256", snap.CurrentDuty)
	}
	if snap.RestDuty != servo.DefaultRestDuty {
		t.Errorf("Snapshot.RestDuty: got %d, want %d", snap.RestDuty, servo.DefaultRestDuty)
	}
}
