package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/pulse-monitor/internal/history"
	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/notify"
	"github.com/sweeney/pulse-monitor/internal/status"
)

// recorder persists reports. Satisfied by *history.Store.
type recorder interface {
	Record(ctx context.Context, ts time.Time, st logic.Status, bpm uint) (history.Entry, error)
}

// broadcaster pushes status JSON to live clients. Satisfied by *web.Hub.
type broadcaster interface {
	Broadcast(b []byte)
}

// dispatcher fans tracker updates out to the slow consumers so the
// scheduler goroutine never waits on the network or the disk.
type dispatcher struct {
	tracker   *status.Tracker
	pub       notify.Publisher
	conn      notify.ConnectionStatus // optional
	rec       recorder                // optional
	hub       broadcaster             // optional
	heartbeat <-chan time.Time        // nil disables
	now       func() time.Time
}

// run consumes updates until ctx is cancelled, then drains whatever
// is already queued.
func (d *dispatcher) run(ctx context.Context) error {
	updates := d.tracker.Updates()
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case u := <-updates:
					d.deliver(u)
				default:
					return nil
				}
			}
		case u := <-updates:
			d.deliver(u)
		case <-d.heartbeat:
			d.beat()
		}
	}
}

func (d *dispatcher) deliver(u status.Update) {
	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("status", string(u.Status)).Uint("bpm", u.BPM).Msg("report")

	if err := d.pub.PublishMeasurement(notify.Measurement{Timestamp: u.Timestamp, Status: u.Status, BPM: u.BPM}); err != nil {
		logger.Warn().Err(err).Msg("measurement not published")
	}
	if d.rec != nil {
		if _, err := d.rec.Record(context.Background(), u.Timestamp, u.Status, u.BPM); err != nil {
			logger.Warn().Err(err).Msg("measurement not recorded")
		}
	}
	d.refresh()
	if d.hub != nil {
		d.hub.Broadcast(status.FormatJSON(d.tracker.Snapshot()))
	}
}

func (d *dispatcher) beat() {
	d.refresh()
	snap := d.tracker.Snapshot()
	log.Info().Str("component", "main").
		Dur("uptime", snap.Uptime().Truncate(time.Second)).
		Str("state", snap.State.String()).
		Uint64("dropped_commands", snap.DroppedCommands).
		Msg("heartbeat")

	err := d.pub.PublishSystem(notify.SystemEvent{
		Timestamp:  d.now(),
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	})
	if err != nil {
		log.Warn().Str("component", "main").Err(err).Msg("heartbeat not published")
	}
}

func (d *dispatcher) refresh() {
	if d.conn != nil {
		d.tracker.SetConnected(d.conn.IsConnected())
	}
}
