package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

func TestFakePublisherRecords(t *testing.T) {
	f := NewFakePublisher()
	var _ Publisher = f
	var _ ConnectionStatus = f

	require.NoError(t, f.PublishMeasurement(Measurement{Timestamp: time.Now(), Status: logic.StatusNoSkinContact}))
	require.NoError(t, f.PublishSystem(SystemEvent{Event: "STARTUP"}))
	require.NoError(t, f.PublishSamples([]Sample{{1, 2}, {3, 4}}))

	assert.Equal(t, 1, f.MeasurementCount())
	assert.Len(t, f.Payloads, 1)
	assert.Equal(t, []string{"STARTUP"}, f.SystemEventNames())
	assert.Equal(t, 2, f.SampleCount())
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("boom")
	f.PublishSystemError = errors.New("bang")

	assert.Error(t, f.PublishMeasurement(Measurement{}))
	assert.Error(t, f.PublishSamples(nil))
	assert.Error(t, f.PublishSystem(SystemEvent{}))
	assert.Zero(t, f.MeasurementCount())
	assert.Empty(t, f.SystemEvents)
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	_ = f.PublishMeasurement(Measurement{})
	_ = f.Close()

	f.Reset()

	assert.Zero(t, f.MeasurementCount())
	assert.False(t, f.Closed)
	assert.False(t, f.IsConnected())
}

func TestMQTTAndNATSImplementPublisher(t *testing.T) {
	var _ Publisher = (*MQTTPublisher)(nil)
	var _ ConnectionStatus = (*MQTTPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ ConnectionStatus = (*NATSPublisher)(nil)
}
