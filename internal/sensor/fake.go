package sensor

// Sample is one raw reading of both channels.
type Sample struct {
	A uint32 // optical (pulse) channel
	B uint32 // ambient light channel
}

// FakeSensor is a test double that returns scripted readings and records
// power transitions.
type FakeSensor struct {
	// Samples contains scripted readings. ReadChannelA returns the current
	// sample's A value; ReadChannelB returns its B value and advances.
	// Once exhausted, the last sample repeats.
	Samples []Sample

	index int

	// Enabled is the current power state.
	Enabled bool
	// EnableCalls and DisableCalls count power transitions requested.
	EnableCalls  int
	DisableCalls int
	// Reads counts completed channel pairs.
	Reads int
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples []Sample) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Enable marks the sensor powered.
func (f *FakeSensor) Enable() {
	f.Enabled = true
	f.EnableCalls++
}

// Disable marks the sensor unpowered.
func (f *FakeSensor) Disable() {
	f.Enabled = false
	f.DisableCalls++
}

// ReadChannelA returns the current sample's optical value.
func (f *FakeSensor) ReadChannelA() uint32 {
	if len(f.Samples) == 0 {
		return 0
	}
	return f.Samples[f.index].A
}

// ReadChannelB returns the current sample's ambient value and advances.
func (f *FakeSensor) ReadChannelB() uint32 {
	if len(f.Samples) == 0 {
		return 0
	}
	v := f.Samples[f.index].B
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	f.Reads++
	return v
}

// Reset rewinds the samples and clears counters.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Enabled = false
	f.EnableCalls = 0
	f.DisableCalls = 0
	f.Reads = 0
}
