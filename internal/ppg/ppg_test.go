package ppg

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sine returns n optical samples of a pulse at bpm, sampled every interval.
func sine(n int, bpm float64, interval time.Duration) []uint32 {
	out := make([]uint32, n)
	hz := bpm / 60
	for i := range out {
		t := float64(i) * interval.Seconds()
		out[i] = uint32(20000 + 2000*math.Sin(2*math.Pi*hz*t))
	}
	return out
}

func feed(p *Processor, samples []uint32) {
	for _, v := range samples {
		p.Ingest(v, 100)
	}
}

func TestNewDefaults(t *testing.T) {
	p := New(0, 0)
	assert.Equal(t, DefaultSampleInterval, p.SampleInterval())
	assert.Equal(t, uint32(DefaultAmbientThreshold), p.ambientThreshold)
	assert.Equal(t, 0, p.CurrentEstimate())
}

func TestEstimateSteadyPulse(t *testing.T) {
	for _, bpm := range []float64{55, 72, 110} {
		p := New(40*time.Millisecond, 0)
		feed(p, sine(500, bpm, 40*time.Millisecond))

		assert.InDelta(t, bpm, p.CurrentEstimate(), 2, "bpm %v", bpm)
	}
}

func TestNoEstimateBeforeBaseline(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	feed(p, sine(minBaseline-1, 72, 40*time.Millisecond))

	assert.Equal(t, 0, p.CurrentEstimate())
	assert.Empty(t, p.intervals)
}

func TestFlatSignalHasNoEstimate(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	for i := 0; i < 400; i++ {
		p.Ingest(15000, 100)
	}
	assert.Equal(t, 0, p.CurrentEstimate())
}

func TestAmbientContamination(t *testing.T) {
	p := New(40*time.Millisecond, 1000)

	assert.Equal(t, int8(1), p.Ingest(20000, 1001))
	assert.Equal(t, 0, p.rawCount, "contaminated samples are discarded")
	assert.Equal(t, int8(0), p.Ingest(20000, 1000))
	assert.Equal(t, 1, p.rawCount)
}

func TestIrregularBeatsRequestReset(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	var samples []uint32
	pulse := func(gap int) {
		for i := 0; i < gap; i++ {
			if i < 3 {
				samples = append(samples, 30000)
			} else {
				samples = append(samples, 10000)
			}
		}
	}
	for i := 0; i < 12; i++ {
		pulse(10) // 400ms
		pulse(30) // 1200ms
	}

	feed(p, samples)

	assert.Equal(t, -1, p.CurrentEstimate())
}

func TestPartialResetKeepsBaseline(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	feed(p, sine(400, 72, 40*time.Millisecond))
	require.NotZero(t, p.CurrentEstimate())
	count := p.rawCount

	p.Reset(false)

	assert.Equal(t, 0, p.CurrentEstimate())
	assert.Empty(t, p.intervals)
	assert.Equal(t, count, p.rawCount)

	// Beats are detected right away because the baseline survived.
	feed(p, sine(250, 72, 40*time.Millisecond))
	assert.InDelta(t, 72, p.CurrentEstimate(), 2)
}

func TestFullResetDropsBaseline(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	feed(p, sine(400, 72, 40*time.Millisecond))

	p.Reset(true)

	assert.Equal(t, 0, p.CurrentEstimate())
	assert.Equal(t, 0, p.rawCount)
	assert.Zero(t, p.rawSum)
}

func TestRefractoryIgnoresDoubleCrossings(t *testing.T) {
	p := New(40*time.Millisecond, 0)
	p.haveBeat = true
	p.lastBeat = 10

	p.beat(14) // 160ms later
	assert.Empty(t, p.intervals)
	assert.Equal(t, 10.0, p.lastBeat)

	p.beat(30) // 800ms after the accepted beat
	require.Len(t, p.intervals, 1)
	assert.InDelta(t, 800, p.intervals[0], 0.001)
}
