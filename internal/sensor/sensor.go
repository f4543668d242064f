// Package sensor provides the optical heart-rate sensor adapter.
// Power is switched through a GPIO output; the two raw channels are read
// from the kernel IIO driver.
package sensor

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/pulse-monitor/internal/gpio"
)

// AmbientReadFailed stands in for a failed ambient channel read. It is above
// any ambient threshold, so a broken channel is never taken for a dark one.
const AmbientReadFailed = math.MaxUint32

// ChannelReader reads one raw channel.
type ChannelReader interface {
	Read() (uint32, error)
}

// Adapter implements the scheduler's sensor contract. The contract has no
// error returns, so failures are logged and replaced with a fallback value:
// a failed optical read returns 0 and a failed ambient read returns
// AmbientReadFailed, which the processor rejects as outside light.
type Adapter struct {
	power gpio.Output
	chA   ChannelReader
	chB   ChannelReader
	log   zerolog.Logger

	// failing tracks per-channel error streaks so each streak logs once.
	failing [2]bool
}

// NewAdapter creates an adapter. power must start in the off state.
func NewAdapter(power gpio.Output, chA, chB ChannelReader) *Adapter {
	return &Adapter{
		power: power,
		chA:   chA,
		chB:   chB,
		log:   log.With().Str("component", "sensor").Logger(),
	}
}

// Enable powers the sensor.
func (a *Adapter) Enable() {
	if err := a.power.SetValue(1); err != nil {
		a.log.Error().Err(err).Msg("enable sensor")
		return
	}
	a.log.Debug().Msg("sensor on")
}

// Disable removes sensor power.
func (a *Adapter) Disable() {
	if err := a.power.SetValue(0); err != nil {
		a.log.Error().Err(err).Msg("disable sensor")
		return
	}
	a.log.Debug().Msg("sensor off")
}

// ReadChannelA returns the optical channel, or 0 on error.
func (a *Adapter) ReadChannelA() uint32 {
	return a.read(0, a.chA, 0)
}

// ReadChannelB returns the ambient light channel, or AmbientReadFailed on
// error.
func (a *Adapter) ReadChannelB() uint32 {
	return a.read(1, a.chB, AmbientReadFailed)
}

func (a *Adapter) read(idx int, ch ChannelReader, fallback uint32) uint32 {
	v, err := ch.Read()
	if err != nil {
		if !a.failing[idx] {
			a.log.Warn().Err(err).Int("channel", idx).Msg("channel read failed")
			a.failing[idx] = true
		}
		return fallback
	}
	if a.failing[idx] {
		a.log.Info().Int("channel", idx).Msg("channel read recovered")
		a.failing[idx] = false
	}
	return v
}

// Close powers the sensor down and releases the power line.
func (a *Adapter) Close() error {
	return a.power.Close()
}
