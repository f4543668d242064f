package notify

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NATSPublisher publishes to a NATS server. The nats client buffers
// outgoing messages itself while reconnecting.
type NATSPublisher struct {
	conn      *nats.Conn
	connected atomic.Bool
	onChange  func(bool)
	log       zerolog.Logger
}

// NewNATSPublisher connects to the server at url.
func NewNATSPublisher(url, name string, onChange func(connected bool)) (*NATSPublisher, error) {
	p := &NATSPublisher{
		onChange: onChange,
		log:      log.With().Str("component", "notify").Str("transport", "nats").Logger(),
	}
	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.log.Warn().Err(err).Msg("disconnected")
			p.setConnected(false)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.log.Info().Str("url", c.ConnectedUrl()).Msg("reconnected")
			p.setConnected(true)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p.conn = conn
	p.setConnected(true)
	return p, nil
}

// Subject converts a topic to its NATS subject.
func Subject(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}

// IsConnected reports whether the server connection is up.
func (p *NATSPublisher) IsConnected() bool {
	return p.connected.Load()
}

// PublishMeasurement sends a heart-rate report.
func (p *NATSPublisher) PublishMeasurement(m Measurement) error {
	payload, err := FormatMeasurement(m)
	if err != nil {
		return fmt.Errorf("format measurement: %w", err)
	}
	return p.publish(TopicMeasurement, payload)
}

// PublishSystem sends a system lifecycle event.
func (p *NATSPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, payload)
}

// PublishSamples sends raw channel pairs.
func (p *NATSPublisher) PublishSamples(samples []Sample) error {
	return p.publish(TopicSamples, EncodeSamples(samples))
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.log.Warn().Err(err).Msg("flush on close")
	}
	p.conn.Close()
	p.setConnected(false)
	return nil
}

func (p *NATSPublisher) publish(topic string, payload []byte) error {
	if err := p.conn.Publish(Subject(topic), payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *NATSPublisher) setConnected(v bool) {
	if p.connected.Swap(v) != v && p.onChange != nil {
		p.onChange(v)
	}
}
