package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStream(t *testing.T, s *SampleStream) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return cancel
}

func TestSampleStreamBatches(t *testing.T) {
	pub := NewFakePublisher()
	s := NewSampleStream(pub, 3)
	runStream(t, s)

	for i := uint32(0); i < 6; i++ {
		s.Offer(i, 100+i)
	}

	require.Eventually(t, func() bool { return pub.SampleCount() == 6 }, time.Second, 5*time.Millisecond)
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.Batches, 2)
	assert.Equal(t, []Sample{{0, 100}, {1, 101}, {2, 102}}, pub.Batches[0])
}

func TestSampleStreamFlushesWhenIdle(t *testing.T) {
	pub := NewFakePublisher()
	s := NewSampleStream(pub, 10)
	s.flushAfter = 10 * time.Millisecond
	runStream(t, s)

	s.Offer(1, 2)

	require.Eventually(t, func() bool { return pub.SampleCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestSampleStreamFlushesOnExit(t *testing.T) {
	pub := NewFakePublisher()
	s := NewSampleStream(pub, 10)
	s.flushAfter = time.Hour
	s.Offer(1, 2)
	s.Offer(3, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, func() bool { return len(s.queue) == 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 2, pub.SampleCount())
}

func TestSampleStreamOfferNeverBlocks(t *testing.T) {
	s := NewSampleStream(NewFakePublisher(), 2)

	for i := 0; i < 20; i++ {
		s.Offer(uint32(i), 0)
	}

	assert.Equal(t, 8, len(s.queue))
	assert.Equal(t, uint64(12), s.Dropped())
}

func TestSampleStreamDefaultBatch(t *testing.T) {
	s := NewSampleStream(NewFakePublisher(), 0)
	assert.Equal(t, DefaultBatchSize, s.batch)
}
