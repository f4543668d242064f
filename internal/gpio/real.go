//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "pulse-monitor"

// PowerLine drives the sensor power-enable output.
type PowerLine struct {
	line *gpiocdev.Line
}

// NewPowerLine requests pin on chip as an output, initially off.
func NewPowerLine(chip string, pin int) (*PowerLine, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request power pin %d: %w", pin, err)
	}
	return &PowerLine{line: line}, nil
}

// SetValue drives the line.
func (p *PowerLine) SetValue(v int) error {
	if err := p.line.SetValue(v); err != nil {
		return fmt.Errorf("set power pin: %w", err)
	}
	return nil
}

// Close drives the line low and releases it, leaving the sensor unpowered.
func (p *PowerLine) Close() error {
	var errs []error
	if err := p.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive power pin low: %w", err))
	}
	if err := p.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close power pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// WakeWatcher delivers edges of the display wake line to a handler.
type WakeWatcher struct {
	line *gpiocdev.Line
}

// WatchWake requests pin on chip as an edge-detecting input. handler is
// called from the gpiocdev event goroutine for every debounced edge.
func WatchWake(chip string, pin int, handler WakeHandler) (*WakeWatcher, error) {
	line, err := gpiocdev.RequestLine(chip, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(10*time.Millisecond),
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			handler(evt.Type == gpiocdev.LineEventRisingEdge)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request wake pin %d: %w", pin, err)
	}
	return &WakeWatcher{line: line}, nil
}

// Awake reads the current level of the wake line.
func (w *WakeWatcher) Awake() (bool, error) {
	v, err := w.line.Value()
	if err != nil {
		return false, fmt.Errorf("read wake pin: %w", err)
	}
	return v == 1, nil
}

// Close stops edge delivery and releases the line.
func (w *WakeWatcher) Close() error {
	return w.line.Close()
}
