package mqtt

import (
	"sync"

	"github.com/sweeney/pet-feeder/internal/feeder"
)

// FakePublisher records published events for test assertions. Publishes
// arrive from scheduler goroutines, so access is mutex-guarded.
type FakePublisher struct {
	mu             sync.Mutex
	feedEvents     []feeder.Event
	payloads       [][]byte
	systemEvents   []SystemEvent
	systemPayloads [][]byte

	// PublishError, if set, will be returned by PublishFeed.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishFeed records the feeder event.
func (f *FakePublisher) PublishFeed(event feeder.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.feedEvents = append(f.feedEvents, event)

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.payloads = append(f.payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.systemEvents = append(f.systemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemPayloads = append(f.systemPayloads, payload)

	return nil
}

// FeedEvents returns a copy of all feeder events that were published.
func (f *FakePublisher) FeedEvents() []feeder.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]feeder.Event(nil), f.feedEvents...)
}

// Payloads returns a copy of the JSON payloads that were published.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// SystemEvents returns a copy of all system events that were published.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns a copy of the JSON payloads for system events.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedEvents = nil
	f.payloads = nil
	f.systemEvents = nil
	f.systemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
