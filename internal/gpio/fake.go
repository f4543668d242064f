package gpio

import "sync"

// FakeOutput is a test double that records driven values.
type FakeOutput struct {
	mu sync.Mutex

	// Values contains every value passed to SetValue, in order.
	Values []int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetValue()
	SetError error
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetValue records v.
func (f *FakeOutput) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, v)
	return nil
}

// Value returns the last driven value, or 0 if none.
func (f *FakeOutput) Value() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
