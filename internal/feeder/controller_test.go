package feeder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/pet-feeder/internal/config"
	"github.com/sweeney/pet-feeder/internal/servo"
)

// sinkRecorder records published events for assertions.
type sinkRecorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *sinkRecorder) PublishFeed(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *sinkRecorder) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

type fixture struct {
	mock  *clock.Mock
	drv   *servo.Fake
	store *config.Store
	sink  *sinkRecorder
	fc    *Controller
}

func newFixture(t *testing.T, cfg config.FeederConfig) *fixture {
	t.Helper()
	f := &fixture{
		mock:  clock.NewMock(),
		drv:   servo.NewFake(),
		store: config.NewStore(cfg),
		sink:  &sinkRecorder{},
	}
	f.fc = New(f.store, f.drv, f.mock, f.sink)
	if err := f.fc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return f
}

func TestStartAppliesRestPosition(t *testing.T) {
	f := newFixture(t, config.Default())

	last, ok := f.drv.Last()
	if !ok {
		t.Fatal("Start did not apply any duty")
	}
	if last != servo.DefaultRestDuty {
		t.Errorf("Start applied %d, want rest duty %d", last, servo.DefaultRestDuty)
	}
	if f.store.Current() != servo.DefaultRestDuty {
		t.Errorf("Current: got %d, want %d", f.store.Current(), servo.DefaultRestDuty)
	}
}

func TestStartArmsAutoFeedFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.AutoFeedMinutes = 30
	f := newFixture(t, cfg)

	if !f.fc.Status().AutoEnabled {
		t.Fatal("expected auto feed enabled after Start")
	}

	f.mock.Add(30 * time.Minute)
	if got := f.fc.Status().Counts.AutoFeeds; got != 1 {
		t.Errorf("AutoFeeds: got %d, want 1", got)
	}
}

func TestFeedNowThenReset(t *testing.T) {
	f := newFixture(t, config.Default())
	f.drv.Reset()

	if err := f.fc.FeedNow(TriggerManual); err != nil {
		t.Fatalf("FeedNow: %v", err)
	}

	// Gate moves to the feed position immediately.
	last, _ := f.drv.Last()
	if last != servo.DefaultFeedDuty {
		t.Errorf("after FeedNow: applied %d, want feed duty %d", last, servo.DefaultFeedDuty)
	}
	snap := f.fc.Status()
	if snap.CurrentDuty != servo.DefaultFeedDuty {
		t.Errorf("CurrentDuty: got %d, want %d", snap.CurrentDuty, servo.DefaultFeedDuty)
	}
	if !snap.ResetArmed {
		t.Error("expected reset armed after FeedNow")
	}
	if snap.Counts.ManualFeeds != 1 {
		t.Errorf("ManualFeeds: got %d, want 1", snap.Counts.ManualFeeds)
	}

	// After the delay the gate is back at rest and the scheduler idle.
	f.mock.Add(config.DefaultResetDelay)
	snap = f.fc.Status()
	if snap.CurrentDuty != servo.DefaultRestDuty {
		t.Errorf("after reset: CurrentDuty %d, want rest %d", snap.CurrentDuty, servo.DefaultRestDuty)
	}
	if snap.ResetArmed {
		t.Error("expected reset idle after firing")
	}
	if snap.Counts.Resets != 1 {
		t.Errorf("Resets: got %d, want 1", snap.Counts.Resets)
	}

	// No further callback ever fires.
	f.mock.Add(time.Hour)
	if got := f.fc.Status().Counts.Resets; got != 1 {
		t.Errorf("Resets after idle hour: got %d, want 1", got)
	}
}

func TestDoubleFeedSingleReset(t *testing.T) {
	f := newFixture(t, config.Default())

	f.fc.FeedNow(TriggerManual)
	f.mock.Add(1 * time.Millisecond)
	f.fc.FeedNow(TriggerManual)

	// The first countdown was restarted, not stacked: nothing fires at
	// the first deadline.
	f.mock.Add(config.DefaultResetDelay - 1*time.Millisecond)
	if got := f.fc.Status().Counts.Resets; got != 0 {
		t.Fatalf("reset fired at superseded deadline: %d", got)
	}

	// Exactly one reset at second_call_time + delay.
	f.mock.Add(1 * time.Millisecond)
	snap := f.fc.Status()
	if snap.Counts.Resets != 1 {
		t.Errorf("Resets: got %d, want 1", snap.Counts.Resets)
	}
	if snap.CurrentDuty != servo.DefaultRestDuty {
		t.Errorf("CurrentDuty: got %d, want rest %d", snap.CurrentDuty, servo.DefaultRestDuty)
	}
}

func TestFeedNowHardwareErrorStillArmsReset(t *testing.T) {
	f := newFixture(t, config.Default())
	f.drv.ApplyError = errors.New("i2c write failed")

	err := f.fc.FeedNow(TriggerManual)
	if err == nil {
		t.Fatal("expected hardware error surfaced to caller")
	}
	if !f.fc.Status().ResetArmed {
		t.Fatal("reset must be armed even when the feed write failed")
	}

	// Hardware recovers; the pending reset still restores rest.
	f.drv.ApplyError = nil
	f.mock.Add(config.DefaultResetDelay)
	if got := f.fc.Status().CurrentDuty; got != servo.DefaultRestDuty {
		t.Errorf("CurrentDuty after recovery: got %d, want %d", got, servo.DefaultRestDuty)
	}
}

func TestAutoFeedSchedule(t *testing.T) {
	f := newFixture(t, config.Default())

	if err := f.fc.SetSchedule(60); err != nil {
		t.Fatalf("SetSchedule(60): %v", err)
	}

	f.mock.Add(60 * time.Minute)
	f.mock.Add(60 * time.Minute)
	f.mock.Add(config.DefaultResetDelay)
	snap := f.fc.Status()
	if snap.Counts.AutoFeeds != 2 {
		t.Fatalf("AutoFeeds after 120m: got %d, want 2", snap.Counts.AutoFeeds)
	}
	// Each auto feed runs the full actuation path, including the reset.
	if snap.Counts.Resets != 2 {
		t.Errorf("Resets after 120m: got %d, want 2", snap.Counts.Resets)
	}

	if err := f.fc.SetSchedule(0); err != nil {
		t.Fatalf("SetSchedule(0): %v", err)
	}
	f.mock.Add(24 * time.Hour)
	if got := f.fc.Status().Counts.AutoFeeds; got != 2 {
		t.Errorf("auto feed fired after cancellation: %d", got)
	}
}

func TestSetScheduleRejectsNegative(t *testing.T) {
	cfg := config.Default()
	cfg.AutoFeedMinutes = 30
	f := newFixture(t, cfg)

	err := f.fc.SetSchedule(-1)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *config.ValidationError, got %T", err)
	}

	// Store unchanged, schedule still armed at the old interval.
	if got := f.store.Get().AutoFeedMinutes; got != 30 {
		t.Errorf("AutoFeedMinutes: got %d, want 30", got)
	}
	f.mock.Add(30 * time.Minute)
	if got := f.fc.Status().Counts.AutoFeeds; got != 1 {
		t.Errorf("old schedule should still fire: got %d feeds", got)
	}
}

func TestSetPositionRestAppliesWhenIdle(t *testing.T) {
	f := newFixture(t, config.Default())
	f.drv.Reset()

	if err := f.fc.SetPosition(RoleRest, 320); err != nil {
		t.Fatalf("SetPosition(rest, 320): %v", err)
	}

	last, ok := f.drv.Last()
	if !ok || last != 320 {
		t.Errorf("expected new rest duty applied at rest, got %v %v", last, ok)
	}
	if got := f.store.Get().RestDuty; got != 320 {
		t.Errorf("RestDuty: got %d, want 320", got)
	}
	if got := f.store.Current(); got != 320 {
		t.Errorf("Current: got %d, want 320", got)
	}
}

func TestSetPositionRestDoesNotInterruptFeed(t *testing.T) {
	f := newFixture(t, config.Default())
	f.fc.FeedNow(TriggerManual)
	f.drv.Reset()

	if err := f.fc.SetPosition(RoleRest, 320); err != nil {
		t.Fatalf("SetPosition(rest, 320): %v", err)
	}

	// Mid-feed: the store is updated but nothing is applied yet.
	if _, ok := f.drv.Last(); ok {
		t.Error("rest re-apply must not interrupt an in-progress feed")
	}

	// The pending reset picks up the new rest value.
	f.mock.Add(config.DefaultResetDelay)
	last, _ := f.drv.Last()
	if last != 320 {
		t.Errorf("reset applied %d, want new rest duty 320", last)
	}
}

func TestSetPositionFeedStoresOnly(t *testing.T) {
	f := newFixture(t, config.Default())
	f.drv.Reset()

	if err := f.fc.SetPosition(RoleFeed, 200); err != nil {
		t.Fatalf("SetPosition(feed, 200): %v", err)
	}

	if _, ok := f.drv.Last(); ok {
		t.Error("feed position change must not move the gate")
	}
	if got := f.store.Get().FeedDuty; got != 200 {
		t.Errorf("FeedDuty: got %d, want 200", got)
	}

	f.fc.FeedNow(TriggerManual)
	last, _ := f.drv.Last()
	if last != 200 {
		t.Errorf("FeedNow applied %d, want new feed duty 200", last)
	}
}

func TestSetPositionCurrentBypassesStore(t *testing.T) {
	f := newFixture(t, config.Default())
	before := f.store.Get()

	// Out of range on purpose: current is an operator override, clamped
	// by the driver rather than rejected.
	if err := f.fc.SetPosition(RoleCurrent, 10000); err != nil {
		t.Fatalf("SetPosition(current, 10000): %v", err)
	}

	last, _ := f.drv.Last()
	if last != servo.MaxDuty {
		t.Errorf("applied %d, want clamped %d", last, servo.MaxDuty)
	}
	if got := f.store.Current(); got != servo.MaxDuty {
		t.Errorf("Current: got %d, want %d", got, servo.MaxDuty)
	}
	if f.drv.Clamps() != 1 {
		t.Errorf("Clamps: got %d, want 1", f.drv.Clamps())
	}
	if f.store.Get() != before {
		t.Error("current override must not touch the stored configuration")
	}
}

func TestSetPositionRejectsOutOfRange(t *testing.T) {
	f := newFixture(t, config.Default())
	before := f.store.Get()

	for _, role := range []Role{RoleRest, RoleFeed} {
		if err := f.fc.SetPosition(role, servo.MaxDuty+1); err == nil {
			t.Errorf("SetPosition(%s, out of range): expected error", role)
		}
	}
	if f.store.Get() != before {
		t.Error("rejected position change mutated the store")
	}
}

func TestSetResetDelayNotRetroactive(t *testing.T) {
	f := newFixture(t, config.Default())

	f.fc.FeedNow(TriggerManual)
	if err := f.fc.SetResetDelay(10 * time.Second); err != nil {
		t.Fatalf("SetResetDelay: %v", err)
	}

	// The in-flight countdown keeps its original delay.
	f.mock.Add(config.DefaultResetDelay)
	if got := f.fc.Status().Counts.Resets; got != 1 {
		t.Fatalf("in-flight countdown should use old delay: resets=%d", got)
	}

	// The next arm uses the new delay.
	f.fc.FeedNow(TriggerManual)
	f.mock.Add(config.DefaultResetDelay)
	if got := f.fc.Status().Counts.Resets; got != 1 {
		t.Fatalf("new countdown fired early: resets=%d", got)
	}
	f.mock.Add(10*time.Second - config.DefaultResetDelay)
	if got := f.fc.Status().Counts.Resets; got != 2 {
		t.Errorf("new countdown did not fire at new delay: resets=%d", got)
	}
}

func TestSetResetDelayRejectsNonPositive(t *testing.T) {
	f := newFixture(t, config.Default())
	for _, d := range []time.Duration{0, -time.Second} {
		if err := f.fc.SetResetDelay(d); err == nil {
			t.Errorf("SetResetDelay(%v): expected error", d)
		}
	}
}

func TestEventsPublished(t *testing.T) {
	f := newFixture(t, config.Default())

	f.fc.FeedNow(TriggerButton)
	f.mock.Add(config.DefaultResetDelay)

	events := f.sink.all()
	if len(events) != 2 {
		t.Fatalf("expected FEED + RESET events, got %d", len(events))
	}
	if events[0].Type != EventFeed || events[0].Trigger != TriggerButton {
		t.Errorf("event 0: got %s/%s, want FEED/BUTTON", events[0].Type, events[0].Trigger)
	}
	if events[0].Duty != servo.DefaultFeedDuty {
		t.Errorf("event 0 duty: got %d, want %d", events[0].Duty, servo.DefaultFeedDuty)
	}
	if events[1].Type != EventReset {
		t.Errorf("event 1: got %s, want RESET", events[1].Type)
	}
	if events[1].Duty != servo.DefaultRestDuty {
		t.Errorf("event 1 duty: got %d, want %d", events[1].Duty, servo.DefaultRestDuty)
	}
}

func TestPublishFailureDoesNotBlockFeeding(t *testing.T) {
	f := newFixture(t, config.Default())
	f.sink.err = errors.New("broker unreachable")

	if err := f.fc.FeedNow(TriggerManual); err != nil {
		t.Fatalf("FeedNow must succeed despite publish failure: %v", err)
	}
	if !f.fc.Status().ResetArmed {
		t.Error("reset should be armed despite publish failure")
	}
}

func TestStopReturnsGateToRest(t *testing.T) {
	f := newFixture(t, config.Default())

	f.fc.FeedNow(TriggerManual)
	f.fc.Stop()

	snap := f.fc.Status()
	if snap.ResetArmed {
		t.Error("expected reset cancelled by Stop")
	}
	if snap.CurrentDuty != servo.DefaultRestDuty {
		t.Errorf("CurrentDuty after Stop: got %d, want rest %d", snap.CurrentDuty, servo.DefaultRestDuty)
	}

	// The cancelled countdown never fires.
	f.mock.Add(time.Hour)
	if got := f.fc.Status().Counts.Resets; got != 0 {
		t.Errorf("cancelled reset fired: %d", got)
	}
}

func TestStatusReportsClamps(t *testing.T) {
	f := newFixture(t, config.Default())
	f.fc.SetPosition(RoleCurrent, 10000)

	if got := f.fc.Status().Clamps; got != 1 {
		t.Errorf("Clamps: got %d, want 1", got)
	}
}

func TestConcurrentSetPositionAndStatus(t *testing.T) {
	f := newFixture(t, config.Default())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				f.fc.SetPosition(RoleFeed, 200)
			} else {
				f.fc.SetPosition(RoleFeed, 256)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			cfg := f.fc.Status().Config
			if cfg.FeedDuty != 200 && cfg.FeedDuty != 256 {
				t.Errorf("torn FeedDuty: %d", cfg.FeedDuty)
				return
			}
		}
	}()

	wg.Wait()
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"rest", RoleRest, false},
		{"default", RoleRest, false},
		{"feed", RoleFeed, false},
		{"current", RoleCurrent, false},
		{"", "", true},
		{"bogus", "", true},
		{"REST", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRole(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
