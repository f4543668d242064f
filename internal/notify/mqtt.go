package notify

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the number of messages held while the broker is
// unreachable.
const DefaultBufferSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTOptions configures an MQTTPublisher.
type MQTTOptions struct {
	Broker     string
	ClientID   string
	BufferSize int
	// OnConnectionChange, if set, is called from the paho goroutines
	// whenever the connection comes up or goes down.
	OnConnectionChange func(connected bool)
}

// MQTTPublisher publishes to an MQTT broker. While the connection is down,
// measurement and system messages are kept in a ring buffer and replayed in
// order on reconnect. Raw samples are not buffered.
type MQTTPublisher struct {
	client    paho.Client
	connected atomic.Bool
	everUp    atomic.Bool
	onChange  func(bool)
	log       zerolog.Logger

	// mu guards buf and session. session changes on every connect and
	// connection loss.
	mu      sync.Mutex
	buf     *ringBuffer
	session uint64
}

// NewMQTTPublisher connects to the broker. An unreachable broker is not an
// error: the client keeps retrying in the background and messages are
// buffered until it connects.
func NewMQTTPublisher(o MQTTOptions) (*MQTTPublisher, error) {
	p := newMQTTPublisher(o)

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "LWT"})
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warn().Str("broker", o.Broker).Msg("broker unreachable, buffering until connected")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newMQTTPublisher(o MQTTOptions) *MQTTPublisher {
	size := o.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &MQTTPublisher{
		buf:      newRingBuffer(size),
		onChange: o.OnConnectionChange,
		log:      log.With().Str("component", "notify").Str("transport", "mqtt").Logger(),
	}
}

// IsConnected reports whether the broker connection is up.
func (p *MQTTPublisher) IsConnected() bool {
	return p.connected.Load()
}

// PublishMeasurement sends a heart-rate report (QoS 1, retained so late
// subscribers see the current value).
func (p *MQTTPublisher) PublishMeasurement(m Measurement) error {
	payload, err := FormatMeasurement(m)
	if err != nil {
		return fmt.Errorf("format measurement: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicMeasurement, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event (QoS 1).
func (p *MQTTPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// PublishSamples sends raw channel pairs (QoS 0). Samples are dropped while
// disconnected.
func (p *MQTTPublisher) PublishSamples(samples []Sample) error {
	if !p.connected.Load() {
		return ErrNotConnected
	}
	return p.publish(bufferedMsg{topic: TopicSamples, payload: EncodeSamples(samples)})
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000)
	}
	p.setConnected(false)
	return nil
}

func (p *MQTTPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected.Load() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *MQTTPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect runs on its own goroutine (paho starts one per connect). The
// publisher stays marked disconnected until the backlog is empty, so sends
// made during the replay are queued behind it and the retained measurement
// is always the newest one.
func (p *MQTTPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	p.session++
	session := p.session
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if p.everUp.Swap(true) {
		p.log.Info().Int("buffered", len(pending)).Msg("reconnected")
		reconnected, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		pending = append(pending, bufferedMsg{topic: TopicSystem, payload: reconnected, qos: 1})
	} else {
		p.log.Info().Int("buffered", len(pending)).Msg("connected")
	}

	for {
		for _, msg := range pending {
			if err := p.publish(msg); err != nil {
				p.log.Warn().Err(err).Msg("replay failed")
			}
		}

		p.mu.Lock()
		if p.session != session {
			// Lost again mid-replay; the next connect resumes from the buffer.
			p.mu.Unlock()
			return
		}
		pending = p.buf.drainAll()
		if len(pending) == 0 {
			p.setConnected(true)
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

func (p *MQTTPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.session++
	p.setConnected(false)
	p.mu.Unlock()
	p.log.Warn().Err(err).Msg("connection lost")
}

func (p *MQTTPublisher) setConnected(v bool) {
	if p.connected.Swap(v) != v && p.onChange != nil {
		p.onChange(v)
	}
}
