// Package notify publishes heart-rate results, raw PPG samples and system
// lifecycle events to a message broker.
package notify

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

// Topics. NATS subjects use the same names with dots for slashes.
const (
	TopicMeasurement = "health/pulse-monitor/heartrate"
	TopicSystem      = "health/pulse-monitor/system"
	TopicSamples     = "health/pulse-monitor/ppg"
)

// ErrNotConnected is returned when a message cannot be sent or buffered
// because the transport is down.
var ErrNotConnected = errors.New("not connected")

// Publisher publishes daemon output. Implementations must never block the
// caller for longer than their own publish timeout.
type Publisher interface {
	// PublishMeasurement sends one heart-rate report.
	// Returns error if publishing fails (should not crash the process).
	PublishMeasurement(m Measurement) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// PublishSamples sends a batch of raw PPG channel pairs.
	PublishSamples(samples []Sample) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the transport connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Measurement is one heart-rate report.
type Measurement struct {
	Timestamp time.Time
	Status    logic.Status
	BPM       uint
}

// Sample is one raw channel pair.
type Sample struct {
	A, B uint32
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// MeasurementPayload is the message body for a heart-rate report.
type MeasurementPayload struct {
	HeartRate HeartRatePayload `json:"heart_rate"`
}

// HeartRatePayload contains the report details.
type HeartRatePayload struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	BPM       uint   `json:"bpm"`
}

// FormatMeasurement creates the JSON payload for a heart-rate report.
func FormatMeasurement(m Measurement) ([]byte, error) {
	return json.Marshal(MeasurementPayload{
		HeartRate: HeartRatePayload{
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			Status:    string(m.Status),
			BPM:       m.BPM,
		},
	})
}

// SystemPayload is the message body for system events that don't carry a
// full status snapshot (LWT, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

// EncodeSamples packs samples as consecutive little-endian uint32 pairs,
// channel A first.
func EncodeSamples(samples []Sample) []byte {
	out := make([]byte, 8*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[8*i:], s.A)
		binary.LittleEndian.PutUint32(out[8*i+4:], s.B)
	}
	return out
}

// DecodeSamples is the inverse of EncodeSamples. Trailing bytes that do not
// form a whole pair are ignored.
func DecodeSamples(data []byte) []Sample {
	out := make([]Sample, len(data)/8)
	for i := range out {
		out[i] = Sample{
			A: binary.LittleEndian.Uint32(data[8*i:]),
			B: binary.LittleEndian.Uint32(data[8*i+4:]),
		}
	}
	return out
}
