package logic

type transitionKey struct {
	from State
	cmd  Command
}

// transition fires when guard is nil or returns true. Candidates for one key
// are tried in order.
type transition struct {
	guard  func(*Scheduler) bool
	action func(*Scheduler)
	to     State
}

// transitions is the full command table. Pairs with no entry are ignored.
var transitions = map[transitionKey][]transition{
	{StateSampling, CommandEnterBackground}: {
		// A background window is already due: keep sampling, the window cap
		// applies from the next step.
		{guard: (*Scheduler).backgroundDue, to: StateBackgroundSampling},
		{action: (*Scheduler).powerDown, to: StateBackgroundIdle},
	},

	{StateBackgroundSampling, CommandExitBackground}: {
		{to: StateSampling},
	},
	{StateBackgroundIdle, CommandExitBackground}: {
		{action: (*Scheduler).resumeWindow, to: StateSampling},
	},

	{StateStopped, CommandStartContinuous}: {
		{action: (*Scheduler).startContinuous, to: StateSampling},
	},
	{StateBackgroundSampling, CommandStartContinuous}: {
		{action: (*Scheduler).startContinuous, to: StateSampling},
	},
	{StateBackgroundIdle, CommandStartContinuous}: {
		{action: (*Scheduler).startContinuous, to: StateSampling},
	},

	{StateSampling, CommandStop}: {
		{action: (*Scheduler).stop, to: StateStopped},
	},
	{StateBackgroundSampling, CommandStop}: {
		{action: (*Scheduler).stop, to: StateStopped},
	},
	{StateBackgroundIdle, CommandStop}: {
		{action: (*Scheduler).stop, to: StateStopped},
	},
}
