package feeder

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sweeney/pet-feeder/internal/config"
	"github.com/sweeney/pet-feeder/internal/schedule"
	"github.com/sweeney/pet-feeder/internal/servo"
)

// Controller owns the feeder's actuation logic. All shared mutable state
// lives in the config.Store (one mutex domain); the controller never
// holds that lock across a servo write or a scheduler call.
type Controller struct {
	store *config.Store
	drv   servo.Driver
	clk   clock.Clock
	sink  Sink // may be nil

	reset *schedule.OneShot
	auto  *schedule.Ticker

	countsMu sync.Mutex
	counts   Counts

	startTime time.Time
}

// New creates a Controller. sink may be nil to disable event publishing.
func New(store *config.Store, drv servo.Driver, clk clock.Clock, sink Sink) *Controller {
	c := &Controller{
		store:     store,
		drv:       drv,
		clk:       clk,
		sink:      sink,
		startTime: clk.Now(),
	}
	c.reset = schedule.NewOneShot(clk, c.resetFired)
	c.auto = schedule.NewTicker(clk, c.autoFired)
	return c
}

// Start moves the gate to its rest position and arms the auto-feed
// schedule from the stored configuration.
func (c *Controller) Start() error {
	cfg := c.store.Get()
	if err := c.drv.Apply(cfg.RestDuty); err != nil {
		return fmt.Errorf("apply rest position: %w", err)
	}
	c.store.SetCurrent(cfg.RestDuty)

	if cfg.AutoFeedMinutes > 0 {
		c.auto.Reprogram(time.Duration(cfg.AutoFeedMinutes) * time.Minute)
		log.Printf("feeder: auto feed every %d minutes", cfg.AutoFeedMinutes)
	}
	return nil
}

// Stop cancels both schedulers and, if a feed was in progress, returns
// the gate to rest immediately instead of leaving it open.
func (c *Controller) Stop() {
	c.auto.Cancel()
	if !c.reset.Armed() {
		return
	}
	c.reset.Cancel()
	cfg := c.store.Get()
	if err := c.drv.Apply(cfg.RestDuty); err != nil {
		log.Printf("feeder: apply rest duty %d on stop: %v", cfg.RestDuty, err)
		return
	}
	c.store.SetCurrent(cfg.RestDuty)
}

// FeedNow actuates a feeding: the gate moves to the feed position and the
// reset countdown is (re)armed for the configured delay. It is never
// rejected by validation — this is the operator escape hatch. A hardware
// write failure is returned to the caller, but the reset is still armed
// so the system cannot get stuck mid-feed.
func (c *Controller) FeedNow(trigger Trigger) error {
	cfg := c.store.Get()

	err := c.drv.Apply(cfg.FeedDuty)
	if err != nil {
		log.Printf("feeder: apply feed duty %d: %v", cfg.FeedDuty, err)
	} else {
		c.store.SetCurrent(cfg.FeedDuty)
	}

	c.reset.Arm(cfg.ResetDelay)

	c.countFeed(trigger)
	log.Printf("feeder: feeding (%s), duty %d, reset in %v", trigger, cfg.FeedDuty, cfg.ResetDelay)
	c.publish(Event{Timestamp: c.clk.Now(), Type: EventFeed, Trigger: trigger, Duty: cfg.FeedDuty})

	return err
}

// SetSchedule updates the recurring feed interval. 0 disables it.
// On a validation error nothing changes.
func (c *Controller) SetSchedule(minutes int) error {
	if _, err := c.store.SetAutoFeedMinutes(minutes); err != nil {
		return err
	}

	if minutes > 0 {
		c.auto.Reprogram(time.Duration(minutes) * time.Minute)
		log.Printf("feeder: auto feed every %d minutes", minutes)
	} else {
		c.auto.Cancel()
		log.Printf("feeder: auto feed disabled")
	}
	return nil
}

// SetPosition updates one of the named servo positions.
//
// rest and feed are validated and written to the store. rest is also
// re-applied to hardware, but only when the gate is sitting at rest — a
// feed in progress is not interrupted, and its pending reset picks up
// the new value. current applies immediately, bypassing the store; the
// driver clamps it like any other write.
func (c *Controller) SetPosition(role Role, duty uint32) error {
	switch role {
	case RoleRest:
		if _, err := c.store.SetRestDuty(duty); err != nil {
			return err
		}
		if c.reset.Armed() {
			return nil
		}
		if err := c.drv.Apply(duty); err != nil {
			log.Printf("feeder: apply rest duty %d: %v", duty, err)
			return err
		}
		c.store.SetCurrent(duty)
		return nil

	case RoleFeed:
		_, err := c.store.SetFeedDuty(duty)
		return err

	case RoleCurrent:
		if err := c.drv.Apply(duty); err != nil {
			log.Printf("feeder: apply duty %d: %v", duty, err)
			return err
		}
		clamped, _ := servo.Clamp(duty)
		c.store.SetCurrent(clamped)
		return nil

	default:
		return &config.ValidationError{
			Field:  "position",
			Reason: fmt.Sprintf("unknown position %q", role),
		}
	}
}

// SetResetDelay updates the reset delay. An in-flight countdown keeps
// the delay it was armed with; the new value applies on the next arm.
func (c *Controller) SetResetDelay(d time.Duration) error {
	_, err := c.store.SetResetDelay(d)
	return err
}

// Status returns a read-only snapshot. No side effects.
func (c *Controller) Status() Snapshot {
	cs := c.store.Snapshot()

	c.countsMu.Lock()
	counts := c.counts
	c.countsMu.Unlock()

	snap := Snapshot{
		Config:      cs.FeederConfig,
		CurrentDuty: cs.CurrentDuty,
		Counts:      counts,
		ResetArmed:  c.reset.Armed(),
		AutoEnabled: c.auto.Enabled(),
		StartTime:   c.startTime,
		Now:         c.clk.Now(),
	}
	if cc, ok := c.drv.(servo.ClampCounter); ok {
		snap.Clamps = cc.Clamps()
	}
	return snap
}

// resetFired returns the gate to rest after a feeding.
func (c *Controller) resetFired() {
	cfg := c.store.Get()
	if err := c.drv.Apply(cfg.RestDuty); err != nil {
		log.Printf("feeder: apply rest duty %d on reset: %v", cfg.RestDuty, err)
	} else {
		c.store.SetCurrent(cfg.RestDuty)
	}

	c.countsMu.Lock()
	c.counts.Resets++
	c.countsMu.Unlock()

	log.Printf("feeder: gate reset to rest duty %d", cfg.RestDuty)
	c.publish(Event{Timestamp: c.clk.Now(), Type: EventReset, Duty: cfg.RestDuty})
}

// autoFired runs the same path as FeedNow with the auto trigger.
func (c *Controller) autoFired() {
	// Errors are already logged inside FeedNow; there is no caller to
	// surface them to on the timer path.
	_ = c.FeedNow(TriggerAuto)
}

func (c *Controller) countFeed(trigger Trigger) {
	c.countsMu.Lock()
	switch trigger {
	case TriggerAuto:
		c.counts.AutoFeeds++
	case TriggerButton:
		c.counts.ButtonFeeds++
	default:
		c.counts.ManualFeeds++
	}
	c.countsMu.Unlock()
}

func (c *Controller) publish(ev Event) {
	if c.sink == nil {
		return
	}
	if err := c.sink.PublishFeed(ev); err != nil {
		log.Printf("feeder: publish %s event: %v", ev.Type, err)
	}
}
