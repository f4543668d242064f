package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/pulse-monitor/internal/config"
	"github.com/sweeney/pulse-monitor/internal/gpio"
	"github.com/sweeney/pulse-monitor/internal/history"
	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/notify"
	"github.com/sweeney/pulse-monitor/internal/ppg"
	"github.com/sweeney/pulse-monitor/internal/sensor"
	"github.com/sweeney/pulse-monitor/internal/status"
	"github.com/sweeney/pulse-monitor/internal/task"
	"github.com/sweeney/pulse-monitor/internal/web"
)

// updateBuffer is the tracker's update channel capacity.
const updateBuffer = 64

func runDaemon(cfg *config.Config) error {
	logger := log.With().Str("component", "main").Logger()
	if cfg.File != "" {
		logger.Info().Str("file", cfg.File).Msg("config loaded")
	}

	// Tracker first so STARTUP can carry a snapshot.
	tracker := status.NewTracker(time.Now(), cfg.StatusConfig(), cfg.Mode, updateBuffer)

	power, err := gpio.NewPowerLine(cfg.GPIOChip, cfg.PowerPin)
	if err != nil {
		return fmt.Errorf("init sensor power: %w", err)
	}
	adapter := sensor.NewAdapter(power,
		sensor.IIOChannel{Path: cfg.ChannelA},
		sensor.IIOChannel{Path: cfg.ChannelB})
	defer adapter.Close()

	pub, conn, err := newPublisher(cfg, tracker.SetConnected)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	defer pub.Close()

	var stream *notify.SampleStream
	var onSample func(a, b uint32)
	if cfg.RawStream {
		stream = notify.NewSampleStream(pub, cfg.RawBatch)
		onSample = stream.Offer
	}

	sched := logic.NewScheduler(logic.Config{
		Policy:    cfg.Policy(),
		Sensor:    adapter,
		Processor: ppg.New(cfg.SampleInterval, 0),
		Sink:      tracker,
		OnSample:  onSample,
	})
	tk := task.New(sched, cfg.QueueDepth, tracker)
	tracker.SetDropSource(tk.Dropped)

	var rec recorder
	if cfg.DBPath != "" {
		store, err := history.New(cfg.DBPath)
		if err != nil {
			logger.Error().Err(err).Str("db", cfg.DBPath).Msg("history disabled")
		} else {
			defer store.Close()
			rec = store
		}
	}

	var hub *web.Hub
	var srv *web.Server
	if cfg.HTTPAddr != "" {
		hub = web.NewHub()
		srv = web.New(cfg.HTTPAddr, tracker, tk, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("http server")
			}
		}()
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	taskCtx, stopTask := context.WithCancel(context.Background())
	outCtx, stopOutput := context.WithCancel(context.Background())
	var taskWG, outWG sync.WaitGroup

	taskWG.Add(1)
	go func() {
		defer taskWG.Done()
		tk.Run(taskCtx)
	}()

	d := &dispatcher{tracker: tracker, pub: pub, conn: conn, rec: rec, now: time.Now}
	if hub != nil {
		d.hub = hub
	}
	if cfg.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.Heartbeat)
		defer ticker.Stop()
		d.heartbeat = ticker.C
	}
	outWG.Add(1)
	go func() {
		defer outWG.Done()
		d.run(outCtx)
	}()
	if stream != nil {
		outWG.Add(1)
		go func() {
			defer outWG.Done()
			stream.Run(outCtx)
		}()
	}

	announce(pub, conn, tracker, "STARTUP", "")

	var watcher *gpio.WakeWatcher
	if cfg.WakePin >= 0 {
		watcher, err = gpio.WatchWake(cfg.GPIOChip, cfg.WakePin, wakeHandler(tk.SubmitFromInterrupt))
		if err != nil {
			logger.Warn().Err(err).Int("pin", cfg.WakePin).Msg("wake line unavailable, use SIGUSR1/SIGUSR2")
			watcher = nil
		} else {
			defer watcher.Close()
		}
	}

	if cfg.AutoStart && !tk.Submit(logic.CommandStartContinuous) {
		logger.Warn().Msg("auto-start command dropped")
	}

	// Edges only report changes; a display already asleep at boot needs one
	// explicit command.
	if watcher != nil {
		if awake, err := watcher.Awake(); err != nil {
			logger.Warn().Err(err).Msg("read initial wake level")
		} else if !awake {
			tk.Submit(logic.CommandEnterBackground)
		}
	}

	logger.Info().
		Dur("background_period", cfg.BackgroundPeriod).
		Dur("background_window", cfg.BackgroundWindow).
		Str("transport", cfg.Transport).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, userSignals...)...)
	defer signal.Stop(sig)

	reason := waitForSignals(sig, tk.SubmitFromInterrupt)
	logger.Info().Str("signal", reason).Msg("shutting down")

	// Power the sensor down and let the final report reach the consumers
	// before they stop.
	stopTask()
	taskWG.Wait()
	stopOutput()
	outWG.Wait()

	announce(pub, conn, tracker, "SHUTDOWN", reason)

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return nil
}

// newPublisher builds the configured notifier. onChange receives connection
// state changes.
func newPublisher(cfg *config.Config, onChange func(bool)) (notify.Publisher, notify.ConnectionStatus, error) {
	switch cfg.Transport {
	case "mqtt":
		p, err := notify.NewMQTTPublisher(notify.MQTTOptions{
			Broker:             cfg.Broker,
			ClientID:           cfg.ClientID,
			OnConnectionChange: onChange,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "nats":
		p, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.ClientID, onChange)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "none":
		return notify.Discard{}, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown transport %q", config.ErrInvalid, cfg.Transport)
}

// announce publishes a system event carrying a full status snapshot.
func announce(pub notify.Publisher, conn notify.ConnectionStatus, tracker *status.Tracker, event, reason string) {
	if conn != nil {
		tracker.SetConnected(conn.IsConnected())
	}
	snap := tracker.Snapshot()
	err := pub.PublishSystem(notify.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warn().Err(err).Str("component", "main").Str("event", event).Msg("system event not published")
		return
	}
	log.Info().Str("component", "main").Str("event", event).Msg("published system event")
}

// wakeHandler maps display wake edges to scheduler commands. It runs in the
// GPIO event goroutine.
func wakeHandler(submit func(logic.Command) bool) gpio.WakeHandler {
	return func(awake bool) {
		cmd := logic.CommandEnterBackground
		if awake {
			cmd = logic.CommandExitBackground
		}
		submit(cmd)
	}
}

// waitForSignals forwards user signals to submit until a termination
// signal arrives, and returns its name.
func waitForSignals(sig <-chan os.Signal, submit func(logic.Command) bool) string {
	for s := range sig {
		if cmd, ok := userSignalCommand(s); ok {
			log.Debug().Str("component", "main").Str("signal", s.String()).Str("cmd", cmd.String()).Msg("signal command")
			submit(cmd)
			continue
		}
		return signalName(s)
	}
	return "CLOSED"
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
