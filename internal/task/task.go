// Package task runs the acquisition scheduler on a single dedicated goroutine.
//
// The command channel is the only way into the scheduler. Producers never
// block: when the channel is full the command is dropped and counted.
package task

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

// DefaultQueueDepth is the command channel capacity.
const DefaultQueueDepth = 10

// StateListener is told about every acquisition state change. It is called on
// the task goroutine and must not block.
type StateListener interface {
	SetAcquisitionState(state logic.State)
}

// Task owns a Scheduler and its command queue.
type Task struct {
	sched    *logic.Scheduler
	queue    chan logic.Command
	dropped  atomic.Uint64
	listener StateListener
	log      zerolog.Logger

	// newTimer is swapped in tests.
	newTimer func(d time.Duration) (<-chan time.Time, func() bool)
	// afterStep, if set, runs at the end of every loop iteration.
	afterStep func()
}

// New creates a Task around sched with a queue of the given depth. A depth
// below 1 selects DefaultQueueDepth.
func New(sched *logic.Scheduler, depth int, listener StateListener) *Task {
	if depth < 1 {
		depth = DefaultQueueDepth
	}
	return &Task{
		sched:    sched,
		queue:    make(chan logic.Command, depth),
		listener: listener,
		log:      log.With().Str("component", "task").Logger(),
		newTimer: func(d time.Duration) (<-chan time.Time, func() bool) {
			t := time.NewTimer(d)
			return t.C, t.Stop
		},
	}
}

// Submit enqueues cmd without blocking. It returns false if the queue was
// full and the command was dropped.
func (t *Task) Submit(cmd logic.Command) bool {
	select {
	case t.queue <- cmd:
		return true
	default:
		t.drop(cmd)
		return false
	}
}

// SubmitFromInterrupt enqueues cmd from an asynchronous notification context
// such as a GPIO edge handler. It never blocks, and yields the processor
// after a successful enqueue so the task goroutine can pick the command up
// promptly.
func (t *Task) SubmitFromInterrupt(cmd logic.Command) bool {
	if !t.Submit(cmd) {
		return false
	}
	runtime.Gosched()
	return true
}

// Dropped returns the number of commands lost to a full queue.
func (t *Task) Dropped() uint64 {
	return t.dropped.Load()
}

func (t *Task) drop(cmd logic.Command) {
	n := t.dropped.Add(1)
	if n == 1 || n%100 == 0 {
		t.log.Warn().Str("cmd", cmd.String()).Uint64("dropped", n).Msg("command queue full, dropping")
	}
}

// Run drives the scheduler until ctx is cancelled. Each iteration waits for
// at most one command, bounded by the scheduler's NextWait, then performs the
// state-dependent step. On cancellation the sensor is powered down.
func (t *Task) Run(ctx context.Context) error {
	t.notify()
	for {
		var timeout <-chan time.Time
		stop := func() bool { return false }
		if wait := t.sched.NextWait(); wait != logic.WaitForever {
			timeout, stop = t.newTimer(wait)
		}

		select {
		case <-ctx.Done():
			stop()
			t.shutdown()
			return nil
		case cmd := <-t.queue:
			stop()
			t.handle(cmd)
		case <-timeout:
		}

		before := t.sched.State()
		t.sched.Step()
		if after := t.sched.State(); after != before {
			t.log.Info().Str("from", before.String()).Str("to", after.String()).Msg("transition")
			t.notify()
		}

		if t.afterStep != nil {
			t.afterStep()
		}
	}
}

func (t *Task) handle(cmd logic.Command) {
	before := t.sched.State()
	if !t.sched.Handle(cmd) {
		t.log.Debug().Str("cmd", cmd.String()).Str("state", before.String()).Msg("command ignored")
		return
	}
	after := t.sched.State()
	t.log.Info().Str("cmd", cmd.String()).Str("from", before.String()).Str("to", after.String()).Msg("transition")
	if after != before {
		t.notify()
	}
}

func (t *Task) shutdown() {
	if t.sched.State() == logic.StateStopped {
		return
	}
	t.sched.Shutdown()
	t.log.Info().Msg("sensor powered down for shutdown")
	t.notify()
}

func (t *Task) notify() {
	if t.listener != nil {
		t.listener.SetAcquisitionState(t.sched.State())
	}
}
