// Package config loads daemon configuration from flags, environment
// variables and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/pulse-monitor/internal/gpio"
	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/notify"
	"github.com/sweeney/pulse-monitor/internal/ppg"
	"github.com/sweeney/pulse-monitor/internal/sensor"
	"github.com/sweeney/pulse-monitor/internal/status"
	"github.com/sweeney/pulse-monitor/internal/task"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// EnvConfigPath names the environment variable that overrides the config
// file location.
const EnvConfigPath = "PULSE_MONITOR_CONFIG"

// Config file lookup. Swapped in tests.
var (
	configName = "pulse-monitor"
	configDir  = "/etc"
)

// Config holds all daemon settings.
type Config struct {
	BackgroundPeriod time.Duration
	BackgroundWindow time.Duration
	SettleDelay      time.Duration
	IdlePoll         time.Duration
	QueueDepth       int
	SampleInterval   time.Duration
	AutoStart        bool
	Mode             status.RunMode

	Transport string
	Broker    string
	NATSURL   string
	ClientID  string
	RawStream bool
	RawBatch  int
	Heartbeat time.Duration

	HTTPAddr string
	DBPath   string

	GPIOChip string
	PowerPin int
	WakePin  int
	ChannelA string
	ChannelB string

	LogLevel  string
	LogFormat string

	// File is the config file that was read, if any.
	File string
}

// RegisterFlags adds every config key to fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	p := logic.DefaultPolicy()
	fs.Duration("background-period", p.BackgroundPeriod, "time since the last valid beat before a background window opens")
	fs.Duration("background-window", p.BackgroundWindow, "maximum sampling time of a background window")
	fs.Duration("settle-delay", p.SettleDelay, "wait after sensor power-on before sampling")
	fs.Duration("idle-poll", p.IdlePoll, "poll interval while powered down in background mode")
	fs.Int("queue-depth", task.DefaultQueueDepth, "command queue capacity")
	fs.Duration("sample-interval", ppg.DefaultSampleInterval, "pulse processor sample period")
	fs.Bool("auto-start", false, "start continuous measurement at boot")
	fs.String("mode", string(status.ModePeriodic), "run mode: off, periodic, continuous")

	fs.String("transport", "mqtt", "notifier transport: mqtt, nats, none")
	fs.String("broker", "tcp://127.0.0.1:1883", "MQTT broker address")
	fs.String("nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	fs.String("client-id", "pulse-monitor", "transport client name")
	fs.Bool("raw-stream", false, "publish raw PPG channel pairs")
	fs.Int("raw-batch", notify.DefaultBatchSize, "samples per raw PPG message")
	fs.Duration("heartbeat", 15*time.Minute, "system heartbeat interval (0 to disable)")

	fs.String("http", ":8080", "status server address (empty to disable)")
	fs.String("db", "/var/lib/pulse-monitor/history.db", "history database path (empty to disable)")

	fs.String("gpio-chip", gpio.DefaultChip, "GPIO chip for the power and wake lines")
	fs.Int("power-pin", gpio.DefaultPinPower, "sensor power-enable line offset")
	fs.Int("wake-pin", gpio.DefaultPinWake, "display-awake input line offset (-1 to disable)")
	fs.String("channel-a", sensor.DefaultChannelA, "raw optical channel (IIO sysfs file)")
	fs.String("channel-b", sensor.DefaultChannelB, "raw ambient channel (IIO sysfs file)")

	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "auto", "log format: auto, console, json")
}

// Load resolves the configuration. Precedence, highest first: flags set on
// the command line, PULSE_* environment variables, the config file, flag
// defaults. fs must have been passed to RegisterFlags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := os.Getenv(EnvConfigPath); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	c := &Config{
		BackgroundPeriod: v.GetDuration("background-period"),
		BackgroundWindow: v.GetDuration("background-window"),
		SettleDelay:      v.GetDuration("settle-delay"),
		IdlePoll:         v.GetDuration("idle-poll"),
		QueueDepth:       v.GetInt("queue-depth"),
		SampleInterval:   v.GetDuration("sample-interval"),
		AutoStart:        v.GetBool("auto-start"),
		Mode:             status.RunMode(v.GetString("mode")),
		Transport:        v.GetString("transport"),
		Broker:           v.GetString("broker"),
		NATSURL:          v.GetString("nats-url"),
		ClientID:         v.GetString("client-id"),
		RawStream:        v.GetBool("raw-stream"),
		RawBatch:         v.GetInt("raw-batch"),
		Heartbeat:        v.GetDuration("heartbeat"),
		HTTPAddr:         v.GetString("http"),
		DBPath:           v.GetString("db"),
		GPIOChip:         v.GetString("gpio-chip"),
		PowerPin:         v.GetInt("power-pin"),
		WakePin:          v.GetInt("wake-pin"),
		ChannelA:         v.GetString("channel-a"),
		ChannelB:         v.GetString("channel-b"),
		LogLevel:         v.GetString("log-level"),
		LogFormat:        v.GetString("log-format"),
		File:             v.ConfigFileUsed(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	positive := map[string]time.Duration{
		"background-period": c.BackgroundPeriod,
		"background-window": c.BackgroundWindow,
		"settle-delay":      c.SettleDelay,
		"idle-poll":         c.IdlePoll,
		"sample-interval":   c.SampleInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, name, d)
		}
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalid, c.Heartbeat)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("%w: queue-depth must be at least 1, got %d", ErrInvalid, c.QueueDepth)
	}
	if c.RawBatch < 1 {
		return fmt.Errorf("%w: raw-batch must be at least 1, got %d", ErrInvalid, c.RawBatch)
	}
	if _, err := status.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Transport {
	case "mqtt", "nats", "none":
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalid, c.Transport)
	}
	switch c.LogFormat {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("%w: unknown log-format %q", ErrInvalid, c.LogFormat)
	}
	if c.PowerPin < 0 {
		return fmt.Errorf("%w: power-pin must not be negative", ErrInvalid)
	}
	if c.WakePin < -1 {
		return fmt.Errorf("%w: wake-pin must be -1 or a line offset", ErrInvalid)
	}
	return nil
}

// Policy returns the scheduler timing constants.
func (c *Config) Policy() logic.Policy {
	return logic.Policy{
		BackgroundPeriod: c.BackgroundPeriod,
		BackgroundWindow: c.BackgroundWindow,
		SettleDelay:      c.SettleDelay,
		IdlePoll:         c.IdlePoll,
	}
}

// StatusConfig returns the subset shown on the status page.
func (c *Config) StatusConfig() status.Config {
	broker := c.Broker
	switch c.Transport {
	case "nats":
		broker = c.NATSURL
	case "none":
		broker = ""
	}
	return status.Config{
		BackgroundPeriodMs: c.BackgroundPeriod.Milliseconds(),
		BackgroundWindowMs: c.BackgroundWindow.Milliseconds(),
		SampleIntervalMs:   c.SampleInterval.Milliseconds(),
		HeartbeatMs:        c.Heartbeat.Milliseconds(),
		Transport:          c.Transport,
		Broker:             broker,
		HTTPAddr:           c.HTTPAddr,
		RawStream:          c.RawStream,
	}
}
