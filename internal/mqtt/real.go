package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/pet-feeder/internal/feeder"
)

// bufferCapacity bounds how many messages are held while disconnected.
const bufferCapacity = 64

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the broker is unreachable are held in a ring buffer and replayed
// on reconnect.
type RealPublisher struct {
	client paho.Client

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	p := &RealPublisher{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("pet-feeder").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if token.WaitTimeout(10 * time.Second) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		// Connect retry keeps going in the background; messages are
		// buffered until it succeeds.
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
	}

	return p, nil
}

// PublishFeed sends a feeder actuation event to the MQTT broker.
func (p *RealPublisher) PublishFeed(event feeder.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.buf.len()
		p.mu.Unlock()
		return fmt.Errorf("not connected, buffered message for %s (%d queued)", topic, n)
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// onConnect replays messages buffered while disconnected.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.buf.drain()
	p.mu.Unlock()

	if dropped > 0 {
		log.Printf("mqtt: dropped %d buffered messages while disconnected", dropped)
	}
	if len(msgs) == 0 {
		return
	}

	for _, m := range msgs {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	log.Printf("mqtt: replayed %d buffered messages after reconnect", len(msgs))
}

// IsConnected reports whether the broker connection is active.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
