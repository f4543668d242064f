//go:build !linux

package gpio

// PowerLine is not available on non-Linux platforms.
type PowerLine struct{}

// NewPowerLine returns ErrUnsupported on non-Linux platforms.
func NewPowerLine(chip string, pin int) (*PowerLine, error) {
	return nil, ErrUnsupported
}

// SetValue is not implemented on non-Linux platforms.
func (p *PowerLine) SetValue(v int) error {
	return ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (p *PowerLine) Close() error {
	return nil
}

// WakeWatcher is not available on non-Linux platforms.
type WakeWatcher struct{}

// WatchWake returns ErrUnsupported on non-Linux platforms.
func WatchWake(chip string, pin int, handler WakeHandler) (*WakeWatcher, error) {
	return nil, ErrUnsupported
}

// Awake is not implemented on non-Linux platforms.
func (w *WakeWatcher) Awake() (bool, error) {
	return false, ErrUnsupported
}

// Close is not implemented on non-Linux platforms.
func (w *WakeWatcher) Close() error {
	return nil
}
