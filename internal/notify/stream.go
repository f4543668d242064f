package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default raw stream settings.
const (
	DefaultBatchSize  = 10
	DefaultFlushAfter = time.Second
)

// SampleStream batches raw channel pairs from the scheduler and publishes
// them from its own goroutine. Offer never blocks.
type SampleStream struct {
	pub        Publisher
	batch      int
	flushAfter time.Duration
	queue      chan Sample
	dropped    atomic.Uint64
	log        zerolog.Logger
}

// NewSampleStream creates a stream publishing batches of the given size.
// The queue holds four batches.
func NewSampleStream(pub Publisher, batch int) *SampleStream {
	if batch < 1 {
		batch = DefaultBatchSize
	}
	return &SampleStream{
		pub:        pub,
		batch:      batch,
		flushAfter: DefaultFlushAfter,
		queue:      make(chan Sample, 4*batch),
		log:        log.With().Str("component", "notify").Str("stream", "ppg").Logger(),
	}
}

// Offer queues one pair. Called on the scheduler goroutine.
func (s *SampleStream) Offer(a, b uint32) {
	select {
	case s.queue <- Sample{A: a, B: b}:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of samples lost to a full queue.
func (s *SampleStream) Dropped() uint64 {
	return s.dropped.Load()
}

// Run publishes batches until ctx is cancelled. A partial batch is sent
// once no sample has arrived for the flush interval, and on exit.
func (s *SampleStream) Run(ctx context.Context) error {
	pending := make([]Sample, 0, s.batch)
	for {
		var idle <-chan time.Time
		if len(pending) > 0 {
			idle = time.After(s.flushAfter)
		}

		select {
		case <-ctx.Done():
			s.flush(pending)
			return nil
		case smp := <-s.queue:
			pending = append(pending, smp)
			if len(pending) < s.batch {
				continue
			}
		case <-idle:
		}

		s.flush(pending)
		pending = make([]Sample, 0, s.batch)
	}
}

func (s *SampleStream) flush(pending []Sample) {
	if len(pending) == 0 {
		return
	}
	if err := s.pub.PublishSamples(pending); err != nil {
		s.log.Debug().Err(err).Int("samples", len(pending)).Msg("batch not sent")
	}
}
