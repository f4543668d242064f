// Package ppg turns raw photoplethysmography readings into a heart-rate
// estimate.
//
// The processor keeps two kinds of state. The long-lived buffer holds recent
// raw optical samples and provides the baseline; it survives a partial reset.
// The short-term state (beat times and inter-beat intervals) is cleared by any
// reset.
package ppg

import (
	"math"
	"time"
)

// DefaultSampleInterval is the sampling period the processor is tuned for.
const DefaultSampleInterval = 40 * time.Millisecond

// DefaultAmbientThreshold is the ambient channel level above which a reading
// is treated as contaminated by outside light.
const DefaultAmbientThreshold = 4000

const (
	baselineLen  = 128
	minBaseline  = 64
	minIntervals = 5
	maxIntervals = 8
	minBPM       = 30
	maxBPM       = 220
	// maxSpread is the largest allowed ratio between the longest and
	// shortest interval in the estimate window.
	maxSpread  = 1.6
	refractory = 250 * time.Millisecond
)

// Processor is the reference pulse processor. Not safe for concurrent use.
type Processor struct {
	interval         time.Duration
	ambientThreshold uint32

	// long-lived
	raw      [baselineLen]float64
	rawHead  int
	rawCount int
	rawSum   float64

	// short-term
	n         int
	prev      float64
	havePrev  bool
	lastBeat  float64
	haveBeat  bool
	intervals []float64
	estimate  int
}

// New creates a processor sampling every interval. A zero interval or
// threshold selects the default.
func New(interval time.Duration, ambientThreshold uint32) *Processor {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if ambientThreshold == 0 {
		ambientThreshold = DefaultAmbientThreshold
	}
	return &Processor{
		interval:         interval,
		ambientThreshold: ambientThreshold,
		intervals:        make([]float64, 0, maxIntervals),
	}
}

// SampleInterval returns the required period between Ingest calls.
func (p *Processor) SampleInterval() time.Duration {
	return p.interval
}

// Reset clears short-term state. A full reset also drops the baseline.
func (p *Processor) Reset(full bool) {
	p.n = 0
	p.prev = 0
	p.havePrev = false
	p.lastBeat = 0
	p.haveBeat = false
	p.intervals = p.intervals[:0]
	p.estimate = 0

	if full {
		p.raw = [baselineLen]float64{}
		p.rawHead = 0
		p.rawCount = 0
		p.rawSum = 0
	}
}

// Ingest feeds one raw pair: a is the optical channel, b the ambient channel.
// It returns 1 when the ambient level is above threshold, in which case the
// sample is discarded, and 0 otherwise.
func (p *Processor) Ingest(a, b uint32) int8 {
	if b > p.ambientThreshold {
		return 1
	}

	p.push(float64(a))
	p.n++
	if p.rawCount < minBaseline {
		return 0
	}

	x := float64(a) - p.rawSum/float64(p.rawCount)
	if p.havePrev && p.prev < 0 && x >= 0 {
		// Rising zero crossing between the previous sample and this one.
		at := float64(p.n-2) + (-p.prev)/(x-p.prev)
		p.beat(at)
	}
	p.prev = x
	p.havePrev = true
	return 0
}

// CurrentEstimate returns the bpm estimate, 0 when there is not enough data,
// or -1 when the recent beats are implausible and short-term state should be
// reset.
func (p *Processor) CurrentEstimate() int {
	return p.estimate
}

func (p *Processor) push(v float64) {
	if p.rawCount == baselineLen {
		p.rawSum -= p.raw[p.rawHead]
	} else {
		p.rawCount++
	}
	p.raw[p.rawHead] = v
	p.rawSum += v
	p.rawHead = (p.rawHead + 1) % baselineLen
}

// beat records a crossing at fractional sample index at.
func (p *Processor) beat(at float64) {
	if !p.haveBeat {
		p.lastBeat = at
		p.haveBeat = true
		return
	}

	gap := (at - p.lastBeat) * float64(p.interval) / float64(time.Millisecond)
	if gap < float64(refractory/time.Millisecond) {
		return
	}
	p.lastBeat = at

	if len(p.intervals) == maxIntervals {
		copy(p.intervals, p.intervals[1:])
		p.intervals = p.intervals[:maxIntervals-1]
	}
	p.intervals = append(p.intervals, gap)
	p.update()
}

func (p *Processor) update() {
	if len(p.intervals) < minIntervals {
		p.estimate = 0
		return
	}

	sum := 0.0
	lo, hi := math.Inf(1), 0.0
	for _, v := range p.intervals {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	bpm := int(math.Round(60000 / (sum / float64(len(p.intervals)))))

	if bpm < minBPM || bpm > maxBPM || hi/lo > maxSpread {
		p.estimate = -1
		return
	}
	p.estimate = bpm
}
