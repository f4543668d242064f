// Package gpio provides the sensor power-enable line and the display wake
// line with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// ErrUnsupported is returned where the GPIO character device is unavailable.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Output drives a single output line.
type Output interface {
	// SetValue drives the line: 1 = active, 0 = inactive.
	SetValue(v int) error

	// Close releases the line.
	Close() error
}

// WakeHandler is called with the new level of the wake line; awake is true
// while the display is on. It runs on the line's event goroutine, outside the
// scheduler, and must not block.
type WakeHandler func(awake bool)

// Line definitions (offsets on DefaultChip)
const (
	DefaultChip     = "gpiochip0"
	DefaultPinPower = 17 // sensor power enable
	DefaultPinWake  = 27 // display awake, high = on
)
