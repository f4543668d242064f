// Package logic contains the pure heart-rate acquisition state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or goroutines).
// Time is always injectable via the Clock interface.
package logic

import "time"

// Command is a request consumed by the scheduler. Commands carry no payload.
type Command uint8

const (
	CommandEnterBackground Command = iota
	CommandExitBackground
	CommandStartContinuous
	CommandStop
	// CommandChangeMode is reserved. The scheduler accepts and ignores it.
	CommandChangeMode
)

var commandNames = [...]string{
	CommandEnterBackground: "ENTER_BACKGROUND",
	CommandExitBackground:  "EXIT_BACKGROUND",
	CommandStartContinuous: "START_CONTINUOUS",
	CommandStop:            "STOP",
	CommandChangeMode:      "CHANGE_MODE",
}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "UNKNOWN"
}

// State is the acquisition state owned by the scheduler.
type State uint8

const (
	StateStopped State = iota
	StateSampling
	StateBackgroundSampling
	StateBackgroundIdle
)

var stateNames = [...]string{
	StateStopped:            "STOPPED",
	StateSampling:           "SAMPLING",
	StateBackgroundSampling: "BACKGROUND_SAMPLING",
	StateBackgroundIdle:     "BACKGROUND_IDLE",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// Powered reports whether the sensor must be on in this state.
func (s State) Powered() bool {
	return s == StateSampling || s == StateBackgroundSampling
}

// Status is the measurement status reported to the sink.
type Status string

const (
	StatusStopped          Status = "STOPPED"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
	StatusNoSkinContact    Status = "NO_SKIN_CONTACT"
	StatusMeasuring        Status = "MEASURING"
)

// Sensor is the optical sensor driver.
type Sensor interface {
	Enable()
	Disable()
	ReadChannelA() uint32
	ReadChannelB() uint32
}

// Processor is the pulse signal processor.
type Processor interface {
	// Reset clears short-term buffers. A full reset also clears the
	// long-lived buffer.
	Reset(full bool)
	// Ingest feeds one raw pair and returns the ambient flag
	// (positive = ambient light contamination).
	Ingest(a, b uint32) int8
	// CurrentEstimate returns bpm (>0), 0 for no estimate yet, or a negative
	// value when short-term history must be discarded.
	CurrentEstimate() int
	// SampleInterval is the required period between Ingest calls.
	SampleInterval() time.Duration
}

// Sink receives reported measurement changes. Report runs on the scheduler's
// goroutine and must not block.
type Sink interface {
	Report(status Status, bpm uint)
}

// Clock provides monotonic time and the settle delay.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock. time.Time carries a monotonic reading, so
// intervals are immune to wall clock adjustment.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Policy holds the timing constants of the scheduler.
type Policy struct {
	// BackgroundPeriod is the idle time, measured from the last valid beat,
	// after which a background window opens.
	BackgroundPeriod time.Duration
	// BackgroundWindow caps the sampling time of one background window.
	BackgroundWindow time.Duration
	// SettleDelay is the pause after powering the sensor.
	SettleDelay time.Duration
	// IdlePoll is the wait bound while in StateBackgroundIdle.
	IdlePoll time.Duration
}

// DefaultPolicy returns the reference timing constants.
func DefaultPolicy() Policy {
	return Policy{
		BackgroundPeriod: 5 * time.Minute,
		BackgroundWindow: 15 * time.Second,
		SettleDelay:      100 * time.Millisecond,
		IdlePoll:         10 * time.Second,
	}
}

// WaitForever is returned by NextWait when no periodic work is pending.
const WaitForever time.Duration = -1
