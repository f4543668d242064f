package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pulse-monitor/internal/status"
)

// isolate points the default lookup at an empty directory and clears the
// override variable.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldDir := configDir
	configDir = dir
	t.Cleanup(func() { configDir = oldDir })
	t.Setenv(EnvConfigPath, "")
	return dir
}

func flags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	c, err := Load(flags(t))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, c.BackgroundPeriod)
	assert.Equal(t, 15*time.Second, c.BackgroundWindow)
	assert.Equal(t, 100*time.Millisecond, c.SettleDelay)
	assert.Equal(t, 10*time.Second, c.IdlePoll)
	assert.Equal(t, 10, c.QueueDepth)
	assert.Equal(t, 40*time.Millisecond, c.SampleInterval)
	assert.Equal(t, status.ModePeriodic, c.Mode)
	assert.Equal(t, "mqtt", c.Transport)
	assert.Equal(t, 15*time.Minute, c.Heartbeat)
	assert.Equal(t, 27, c.WakePin)
	assert.False(t, c.AutoStart)
	assert.Empty(t, c.File)
}

func TestLoadFileEnvFlagPrecedence(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulse-monitor.toml"), []byte(`
background-period = "10m"
idle-poll = "30s"
queue-depth = 4
transport = "nats"
`), 0644))
	t.Setenv("PULSE_IDLE_POLL", "20s")
	t.Setenv("PULSE_QUEUE_DEPTH", "6")

	c, err := Load(flags(t, "--queue-depth=8"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, c.BackgroundPeriod, "file over default")
	assert.Equal(t, 20*time.Second, c.IdlePoll, "env over file")
	assert.Equal(t, 8, c.QueueDepth, "flag over env")
	assert.Equal(t, "nats", c.Transport)
	assert.Equal(t, filepath.Join(dir, "pulse-monitor.toml"), c.File)
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("auto-start = true\nmode = \"continuous\"\n"), 0644))
	t.Setenv(EnvConfigPath, path)

	c, err := Load(flags(t))
	require.NoError(t, err)

	assert.True(t, c.AutoStart)
	assert.Equal(t, status.ModeContinuous, c.Mode)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	isolate(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load(flags(t))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pulse-monitor.toml"), []byte("queue-depth = = 3"), 0644))

	_, err := Load(flags(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string][]string{
		"zero period":     {"--background-period=0s"},
		"negative window": {"--background-window=-1s"},
		"zero idle poll":  {"--idle-poll=0s"},
		"negative beat":   {"--heartbeat=-1m"},
		"queue depth":     {"--queue-depth=0"},
		"raw batch":       {"--raw-batch=0"},
		"mode":            {"--mode=sometimes"},
		"transport":       {"--transport=carrier-pigeon"},
		"log format":      {"--log-format=xml"},
		"wake pin":        {"--wake-pin=-2"},
		"power pin":       {"--power-pin=-1"},
		"sample interval": {"--sample-interval=0s"},
		"settle delay":    {"--settle-delay=0s"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			_, err := Load(flags(t, args...))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestHeartbeatZeroAllowed(t *testing.T) {
	isolate(t)
	c, err := Load(flags(t, "--heartbeat=0s", "--wake-pin=-1"))
	require.NoError(t, err)
	assert.Zero(t, c.Heartbeat)
	assert.Equal(t, -1, c.WakePin)
}

func TestPolicy(t *testing.T) {
	isolate(t)
	c, err := Load(flags(t, "--background-window=20s"))
	require.NoError(t, err)

	p := c.Policy()
	assert.Equal(t, 20*time.Second, p.BackgroundWindow)
	assert.Equal(t, 5*time.Minute, p.BackgroundPeriod)
}

func TestStatusConfig(t *testing.T) {
	isolate(t)
	c, err := Load(flags(t, "--transport=nats", "--heartbeat=1m"))
	require.NoError(t, err)

	sc := c.StatusConfig()
	assert.Equal(t, "nats://127.0.0.1:4222", sc.Broker)
	assert.Equal(t, int64(60000), sc.HeartbeatMs)
	assert.Equal(t, int64(40), sc.SampleIntervalMs)

	c.Transport = "none"
	assert.Empty(t, c.StatusConfig().Broker)
}
