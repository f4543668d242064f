package ppg

import "time"

// Result is one scripted processor outcome.
type Result struct {
	Ambient int8
	BPM     int
}

// FakeProcessor is a test double that returns scripted results and records
// resets.
type FakeProcessor struct {
	// Results are consumed one per Ingest call. Once exhausted, the last
	// result repeats. With no results, Ingest returns 0 and the estimate is 0.
	Results []Result
	// Interval is returned by SampleInterval.
	Interval time.Duration

	index   int
	current Result

	FullResets    int
	PartialResets int
	Ingested      [][2]uint32
}

// NewFakeProcessor creates a FakeProcessor with a 40ms sample interval.
func NewFakeProcessor(results ...Result) *FakeProcessor {
	return &FakeProcessor{Results: results, Interval: 40 * time.Millisecond}
}

// Reset records a full or partial reset.
func (f *FakeProcessor) Reset(full bool) {
	if full {
		f.FullResets++
	} else {
		f.PartialResets++
	}
}

// Ingest records the pair and advances to the next scripted result.
func (f *FakeProcessor) Ingest(a, b uint32) int8 {
	f.Ingested = append(f.Ingested, [2]uint32{a, b})
	if len(f.Results) == 0 {
		f.current = Result{}
		return 0
	}
	f.current = f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return f.current.Ambient
}

// CurrentEstimate returns the bpm of the last consumed result.
func (f *FakeProcessor) CurrentEstimate() int {
	return f.current.BPM
}

// SampleInterval returns Interval.
func (f *FakeProcessor) SampleInterval() time.Duration {
	return f.Interval
}

// Resets returns the total number of resets of either kind.
func (f *FakeProcessor) Resets() int {
	return f.FullResets + f.PartialResets
}
