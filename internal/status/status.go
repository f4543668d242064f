// Package status provides the thread-safe result sink for the pulse-monitor
// daemon. The scheduler reports into it; HTTP handlers, the notifier and the
// history recorder read from it.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

// RunMode is the user-selected measurement mode shown to consumers.
type RunMode string

const (
	ModeOff        RunMode = "off"
	ModePeriodic   RunMode = "periodic"
	ModeContinuous RunMode = "continuous"
)

// ParseMode validates a run mode name.
func ParseMode(s string) (RunMode, error) {
	switch m := RunMode(s); m {
	case ModeOff, ModePeriodic, ModeContinuous:
		return m, nil
	}
	return "", fmt.Errorf("unknown run mode %q", s)
}

// Config contains daemon configuration for display.
type Config struct {
	BackgroundPeriodMs int64
	BackgroundWindowMs int64
	SampleIntervalMs   int64
	HeartbeatMs        int64
	Transport          string
	Broker             string
	HTTPAddr           string
	RawStream          bool
}

// Counts tracks reports by status since startup.
type Counts struct {
	Measuring    int
	Insufficient int
	NoContact    int
	Stopped      int
}

// Update is one report, queued for asynchronous consumers.
type Update struct {
	Timestamp time.Time
	Status    logic.Status
	BPM       uint
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Status       logic.Status
	BPM          uint
	LastValidBPM uint
	UpdatedAt    time.Time
	State        logic.State
	Mode         RunMode

	Counts          Counts
	DroppedCommands uint64
	DroppedUpdates  uint64

	StartTime time.Time
	Now       time.Time
	Connected bool
	Config    Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds the last reported measurement behind an RWMutex. A report is
// signalled on a buffered channel only when its status or bpm differs from
// the last one signalled; the scheduler repeats itself on every sampling
// step. Report never blocks: when the channel is full the update is dropped
// and counted, while the stored state is always current.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	updates chan Update
	// sent is the last update accepted by the channel.
	sent    Update
	dropped func() uint64
	now     func() time.Time
}

// NewTracker creates a Tracker with the given start time, config and initial
// run mode. buffer is the update channel capacity.
func NewTracker(startTime time.Time, cfg Config, mode RunMode, buffer int) *Tracker {
	if buffer < 1 {
		buffer = 1
	}
	return &Tracker{
		snap: Snapshot{
			Status:    logic.StatusStopped,
			State:     logic.StateStopped,
			Mode:      mode,
			StartTime: startTime,
			Config:    cfg,
		},
		updates: make(chan Update, buffer),
		now:     time.Now,
	}
}

// Report records a measurement change. Called on the scheduler goroutine.
func (t *Tracker) Report(st logic.Status, bpm uint) {
	u := Update{Timestamp: t.now(), Status: st, BPM: bpm}

	t.mu.Lock()
	t.snap.Status = st
	t.snap.BPM = bpm
	t.snap.UpdatedAt = u.Timestamp
	switch st {
	case logic.StatusMeasuring:
		t.snap.Counts.Measuring++
		if bpm > 0 {
			t.snap.LastValidBPM = bpm
		}
	case logic.StatusInsufficientData:
		t.snap.Counts.Insufficient++
	case logic.StatusNoSkinContact:
		t.snap.Counts.NoContact++
	case logic.StatusStopped:
		t.snap.Counts.Stopped++
	}

	if u.Status == t.sent.Status && u.BPM == t.sent.BPM {
		t.mu.Unlock()
		return
	}
	select {
	case t.updates <- u:
		t.sent = u
	default:
		t.snap.DroppedUpdates++
	}
	t.mu.Unlock()
}

// Updates returns the channel on which changed reports are signalled.
func (t *Tracker) Updates() <-chan Update {
	return t.updates
}

// SetAcquisitionState mirrors the scheduler's state for display.
func (t *Tracker) SetAcquisitionState(state logic.State) {
	t.mu.Lock()
	t.snap.State = state
	t.mu.Unlock()
}

// SetMode sets the run mode.
func (t *Tracker) SetMode(mode RunMode) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.mu.Unlock()
}

// SetConnected sets the notifier connection status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// SetDropSource registers the function that reports dropped commands.
func (t *Tracker) SetDropSource(fn func() uint64) {
	t.mu.Lock()
	t.dropped = fn
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	dropped := t.dropped
	t.mu.RUnlock()
	if dropped != nil {
		s.DroppedCommands = dropped()
	}
	s.Now = t.now()
	return s
}
