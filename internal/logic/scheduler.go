package logic

import "time"

// Config wires a Scheduler to its collaborators.
type Config struct {
	Policy    Policy
	Sensor    Sensor
	Processor Processor
	Sink      Sink
	// Clock defaults to SystemClock.
	Clock Clock
	// OnSample, if set, receives every raw pair read during a sampling step.
	// It runs on the scheduler's goroutine and must not block.
	OnSample func(a, b uint32)
}

// Scheduler decides when to power the sensor, when to reset the processor,
// and what to report. It is not safe for concurrent use: exactly one
// goroutine owns it.
type Scheduler struct {
	policy   Policy
	sensor   Sensor
	ppg      Processor
	sink     Sink
	clock    Clock
	onSample func(a, b uint32)

	state State
	// lastValidBeatAt is the reference point for the next background window.
	lastValidBeatAt time.Time
	// windowOpenedAt is when the current sampling window began.
	windowOpenedAt time.Time
	lastBPM        int
}

// NewScheduler creates a scheduler in StateStopped. The idle reference starts
// at construction time.
func NewScheduler(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		policy:          cfg.Policy,
		sensor:          cfg.Sensor,
		ppg:             cfg.Processor,
		sink:            cfg.Sink,
		clock:           clock,
		onSample:        cfg.OnSample,
		state:           StateStopped,
		lastValidBeatAt: clock.Now(),
	}
}

// State returns the current acquisition state.
func (s *Scheduler) State() State {
	return s.state
}

// LastBPM returns the last accepted non-zero bpm, or 0.
func (s *Scheduler) LastBPM() int {
	return s.lastBPM
}

// WindowOpenedAt returns when the current sampling window began. Only
// meaningful while State().Powered() is true.
func (s *Scheduler) WindowOpenedAt() time.Time {
	return s.windowOpenedAt
}

// LastValidBeatAt returns the idle reference point used by background mode.
func (s *Scheduler) LastValidBeatAt() time.Time {
	return s.lastValidBeatAt
}

// Handle applies one command. It returns true if a transition fired and
// false if the command was ignored in the current state.
func (s *Scheduler) Handle(cmd Command) bool {
	for _, tr := range transitions[transitionKey{from: s.state, cmd: cmd}] {
		if tr.guard != nil && !tr.guard(s) {
			continue
		}
		if tr.action != nil {
			tr.action(s)
		}
		s.state = tr.to
		return true
	}
	return false
}

// Step performs the state-dependent periodic work: a sampling step while
// powered, a background-wake check while idle, nothing while stopped.
func (s *Scheduler) Step() {
	switch s.state {
	case StateSampling, StateBackgroundSampling:
		s.sample()
	case StateBackgroundIdle:
		s.checkBackgroundWake()
	}
}

// NextWait returns how long the owner may block waiting for a command before
// calling Step again.
func (s *Scheduler) NextWait() time.Duration {
	switch s.state {
	case StateSampling, StateBackgroundSampling:
		return s.ppg.SampleInterval()
	case StateBackgroundIdle:
		return s.policy.IdlePoll
	default:
		return WaitForever
	}
}

// Shutdown powers everything down as if Stop had been submitted.
func (s *Scheduler) Shutdown() {
	s.Handle(CommandStop)
}

func (s *Scheduler) checkBackgroundWake() {
	if s.clock.Now().Sub(s.lastValidBeatAt) >= s.policy.BackgroundPeriod {
		s.resumeWindow()
		s.state = StateBackgroundSampling
	}
}

func (s *Scheduler) sample() {
	a := s.sensor.ReadChannelA()
	b := s.sensor.ReadChannelB()
	if s.onSample != nil {
		s.onSample(a, b)
	}

	ambient := s.ppg.Ingest(a, b)
	bpm := s.ppg.CurrentEstimate()

	if ambient > 0 {
		s.ppg.Reset(true)
		s.lastBPM = 0
		bpm = 0
	} else if bpm < 0 {
		// Keep the long-lived buffer, drop short-term history.
		s.ppg.Reset(false)
		bpm = 0
		s.sink.Report(StatusMeasuring, 0)
	}

	if ambient > 0 {
		s.sink.Report(StatusNoSkinContact, 0)
	} else if s.lastBPM == 0 && bpm == 0 {
		s.sink.Report(StatusInsufficientData, 0)
	}

	now := s.clock.Now()
	if bpm != 0 {
		s.lastBPM = bpm
		s.sink.Report(StatusMeasuring, uint(bpm))
		s.lastValidBeatAt = now
	}

	if s.state == StateBackgroundSampling && now.Sub(s.windowOpenedAt) > s.policy.BackgroundWindow {
		s.lastValidBeatAt = now
		s.powerDown()
		s.state = StateBackgroundIdle
	}
}

// openWindow powers the sensor, resets the processor and waits for the settle
// delay before marking the window open.
func (s *Scheduler) openWindow(full bool) {
	s.sensor.Enable()
	s.ppg.Reset(full)
	s.clock.Sleep(s.policy.SettleDelay)
	s.windowOpenedAt = s.clock.Now()
}

func (s *Scheduler) startContinuous() { s.openWindow(true) }

func (s *Scheduler) resumeWindow() { s.openWindow(false) }

func (s *Scheduler) powerDown() {
	s.sensor.Disable()
	s.ppg.Reset(true)
	s.lastBPM = 0
}

func (s *Scheduler) stop() {
	s.powerDown()
	s.sink.Report(StatusStopped, 0)
}

func (s *Scheduler) backgroundDue() bool {
	return s.clock.Now().Sub(s.lastValidBeatAt) >= s.policy.BackgroundPeriod
}
