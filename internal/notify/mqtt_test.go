package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

type fakeToken struct {
	paho.Token
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client
	mu           sync.Mutex
	published    []bufferedMsg
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, bufferedMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func (c *fakeClient) topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.published))
	for i, m := range c.published {
		out[i] = m.topic
	}
	return out
}

func newTestMQTT(size int) (*MQTTPublisher, *fakeClient, *[]bool) {
	var changes []bool
	p := newMQTTPublisher(MQTTOptions{
		BufferSize:         size,
		OnConnectionChange: func(c bool) { changes = append(changes, c) },
	})
	fc := &fakeClient{}
	p.client = fc
	return p, fc, &changes
}

func measurement(bpm uint) Measurement {
	return Measurement{Timestamp: time.Now(), Status: logic.StatusMeasuring, BPM: bpm}
}

func TestMQTTBuffersWhileDisconnected(t *testing.T) {
	p, fc, _ := newTestMQTT(10)

	require.NoError(t, p.PublishMeasurement(measurement(70)))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "STARTUP"}))

	assert.Empty(t, fc.topics())
	assert.Equal(t, 2, p.buf.len())
}

func TestMQTTFirstConnectReplays(t *testing.T) {
	p, fc, changes := newTestMQTT(10)
	require.NoError(t, p.PublishMeasurement(measurement(70)))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "STARTUP"}))

	p.onConnect(fc)

	assert.Equal(t, []string{TopicMeasurement, TopicSystem}, fc.topics())
	assert.True(t, p.IsConnected())
	assert.Equal(t, []bool{true}, *changes)
	assert.Equal(t, 0, p.buf.len())
}

func TestMQTTReconnectAnnounces(t *testing.T) {
	p, fc, changes := newTestMQTT(10)
	p.onConnect(fc)
	p.onConnectionLost(fc, errors.New("eof"))
	assert.False(t, p.IsConnected())

	require.NoError(t, p.PublishMeasurement(measurement(71)))
	p.onConnect(fc)

	assert.Equal(t, []string{TopicMeasurement, TopicSystem}, fc.topics())
	last := fc.published[len(fc.published)-1]
	assert.Contains(t, string(last.payload), `"RECONNECTED"`)
	assert.Equal(t, []bool{true, false, true}, *changes)
}

// slowClient holds the first Publish until release is closed.
type slowClient struct {
	*fakeClient
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (c *slowClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.once.Do(func() {
		close(c.started)
		<-c.release
	})
	return c.fakeClient.Publish(topic, qos, retained, payload)
}

func TestMQTTLiveSendDuringReplayKeepsOrder(t *testing.T) {
	p, fc, changes := newTestMQTT(10)
	require.NoError(t, p.PublishMeasurement(measurement(60)))

	sc := &slowClient{fakeClient: fc, started: make(chan struct{}), release: make(chan struct{})}
	p.client = sc
	done := make(chan struct{})
	go func() {
		p.onConnect(sc)
		close(done)
	}()

	<-sc.started
	require.NoError(t, p.PublishMeasurement(measurement(90)))
	assert.False(t, p.IsConnected(), "not live until the backlog is sent")
	close(sc.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("replay did not finish")
	}

	fc.mu.Lock()
	require.Len(t, fc.published, 2)
	assert.Contains(t, string(fc.published[0].payload), `"bpm":60`)
	assert.Contains(t, string(fc.published[1].payload), `"bpm":90`)
	fc.mu.Unlock()
	assert.True(t, p.IsConnected())
	assert.Equal(t, []bool{true}, *changes)
}

func TestMQTTLostDuringReplayKeepsBacklog(t *testing.T) {
	p, fc, _ := newTestMQTT(10)
	require.NoError(t, p.PublishMeasurement(measurement(60)))

	sc := &slowClient{fakeClient: fc, started: make(chan struct{}), release: make(chan struct{})}
	p.client = sc
	done := make(chan struct{})
	go func() {
		p.onConnect(sc)
		close(done)
	}()

	<-sc.started
	p.onConnectionLost(sc, errors.New("eof"))
	require.NoError(t, p.PublishMeasurement(measurement(90)))
	close(sc.release)
	<-done

	assert.False(t, p.IsConnected())
	assert.Equal(t, 1, p.buf.len(), "message sent after the loss waits for the next connect")
}

func TestMQTTPublishWhenConnected(t *testing.T) {
	p, fc, _ := newTestMQTT(10)
	p.onConnect(fc)

	require.NoError(t, p.PublishMeasurement(measurement(66)))

	require.Len(t, fc.published, 1)
	msg := fc.published[0]
	assert.Equal(t, TopicMeasurement, msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)
	assert.Contains(t, string(msg.payload), `"bpm":66`)
}

func TestMQTTPublishError(t *testing.T) {
	p, fc, _ := newTestMQTT(10)
	p.onConnect(fc)
	fc.err = errors.New("broker says no")

	err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
	assert.ErrorContains(t, err, "broker says no")
}

func TestMQTTSamplesNotBuffered(t *testing.T) {
	p, fc, _ := newTestMQTT(10)

	err := p.PublishSamples([]Sample{{A: 1, B: 2}})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, p.buf.len())

	p.onConnect(fc)
	require.NoError(t, p.PublishSamples([]Sample{{A: 1, B: 2}}))
	require.Len(t, fc.published, 1)
	assert.Equal(t, TopicSamples, fc.published[0].topic)
	assert.Equal(t, byte(0), fc.published[0].qos)
	assert.Len(t, fc.published[0].payload, 8)
}

func TestMQTTClose(t *testing.T) {
	p, fc, changes := newTestMQTT(10)
	p.onConnect(fc)

	require.NoError(t, p.Close())

	assert.True(t, fc.disconnected)
	assert.False(t, p.IsConnected())
	assert.Equal(t, []bool{true, false}, *changes)
}

func TestNewMQTTPublisherDefaultBuffer(t *testing.T) {
	p := newMQTTPublisher(MQTTOptions{})
	assert.Equal(t, DefaultBufferSize, p.buf.capacity)
}
