package sensor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pulse-monitor/internal/gpio"
	"github.com/sweeney/pulse-monitor/internal/ppg"
)

type stubChannel struct {
	vals []uint32
	errs []error
	call int
}

func (s *stubChannel) Read() (uint32, error) {
	i := s.call
	s.call++
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	if i < len(s.vals) {
		return s.vals[i], nil
	}
	return 0, nil
}

func TestAdapterPower(t *testing.T) {
	power := gpio.NewFakeOutput()
	a := NewAdapter(power, &stubChannel{}, &stubChannel{})

	a.Enable()
	assert.Equal(t, 1, power.Value())
	a.Disable()
	assert.Equal(t, 0, power.Value())
	assert.Equal(t, []int{1, 0}, power.Values)

	require.NoError(t, a.Close())
	assert.True(t, power.Closed)
}

func TestAdapterPowerErrorIsAbsorbed(t *testing.T) {
	power := gpio.NewFakeOutput()
	power.SetError = errors.New("line busy")
	a := NewAdapter(power, &stubChannel{}, &stubChannel{})

	assert.NotPanics(t, a.Enable)
	assert.NotPanics(t, a.Disable)
}

func TestAdapterReads(t *testing.T) {
	chA := &stubChannel{vals: []uint32{1200, 1300}}
	chB := &stubChannel{vals: []uint32{40}}
	a := NewAdapter(gpio.NewFakeOutput(), chA, chB)

	assert.Equal(t, uint32(1200), a.ReadChannelA())
	assert.Equal(t, uint32(1300), a.ReadChannelA())
	assert.Equal(t, uint32(40), a.ReadChannelB())
}

func TestAdapterReadErrorReturnsZero(t *testing.T) {
	fail := errors.New("io")
	chA := &stubChannel{vals: []uint32{0, 0, 900}, errs: []error{fail, fail}}
	a := NewAdapter(gpio.NewFakeOutput(), chA, &stubChannel{})

	assert.Equal(t, uint32(0), a.ReadChannelA())
	assert.True(t, a.failing[0])
	assert.Equal(t, uint32(0), a.ReadChannelA())
	assert.Equal(t, uint32(900), a.ReadChannelA())
	assert.False(t, a.failing[0], "streak clears on success")
}

func TestAdapterAmbientReadErrorIsContamination(t *testing.T) {
	chB := &stubChannel{vals: []uint32{0, 35}, errs: []error{errors.New("io")}}
	a := NewAdapter(gpio.NewFakeOutput(), &stubChannel{}, chB)

	assert.Equal(t, uint32(AmbientReadFailed), a.ReadChannelB())
	assert.True(t, a.failing[1])
	assert.Equal(t, uint32(35), a.ReadChannelB())
	assert.False(t, a.failing[1])

	p := ppg.New(0, 0)
	assert.Equal(t, int8(1), p.Ingest(20000, AmbientReadFailed))
}

func TestIIOChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in_intensity_raw")
	require.NoError(t, os.WriteFile(path, []byte("48213\n"), 0o644))

	v, err := IIOChannel{Path: path}.Read()
	require.NoError(t, err)
	assert.Equal(t, uint32(48213), v)
}

func TestIIOChannelErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := IIOChannel{Path: filepath.Join(dir, "missing")}.Read()
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("n/a\n"), 0o644))
	_, err = IIOChannel{Path: bad}.Read()
	assert.Error(t, err)
}

func TestFakeSensor(t *testing.T) {
	f := NewFakeSensor([]Sample{{A: 1, B: 2}, {A: 3, B: 4}})

	f.Enable()
	assert.True(t, f.Enabled)
	assert.Equal(t, uint32(1), f.ReadChannelA())
	assert.Equal(t, uint32(2), f.ReadChannelB())
	assert.Equal(t, uint32(3), f.ReadChannelA())
	assert.Equal(t, uint32(4), f.ReadChannelB())
	// last sample repeats
	assert.Equal(t, uint32(3), f.ReadChannelA())
	assert.Equal(t, uint32(4), f.ReadChannelB())
	assert.Equal(t, 3, f.Reads)

	f.Disable()
	assert.False(t, f.Enabled)
	assert.Equal(t, 1, f.EnableCalls)
	assert.Equal(t, 1, f.DisableCalls)

	f.Reset()
	assert.Equal(t, uint32(1), f.ReadChannelA())
	assert.Equal(t, 0, f.EnableCalls)
}
