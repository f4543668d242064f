package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Measurement   string       `json:"measurement"`
	BPM           uint         `json:"bpm"`
	LastValidBPM  uint         `json:"last_valid_bpm"`
	UpdatedAt     string       `json:"updated_at,omitempty"`
	State         string       `json:"state"`
	Mode          string       `json:"mode"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Notifier      NotifierJSON `json:"notifier"`
	Counts        CountsJSON   `json:"report_counts"`
	Dropped       DroppedJSON  `json:"dropped"`
	Config        ConfigJSON   `json:"config"`
}

// NotifierJSON reports notifier connection state.
type NotifierJSON struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of report counts.
type CountsJSON struct {
	Measuring    int `json:"measuring"`
	Insufficient int `json:"insufficient_data"`
	NoContact    int `json:"no_skin_contact"`
	Stopped      int `json:"stopped"`
}

// DroppedJSON reports queue saturation.
type DroppedJSON struct {
	Commands uint64 `json:"commands"`
	Updates  uint64 `json:"updates"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BackgroundPeriodMs int64  `json:"background_period_ms"`
	BackgroundWindowMs int64  `json:"background_window_ms"`
	SampleIntervalMs   int64  `json:"sample_interval_ms"`
	HeartbeatMs        int64  `json:"heartbeat_ms"`
	HTTPAddr           string `json:"http_addr"`
	RawStream          bool   `json:"raw_stream"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Measurement:   string(snap.Status),
		BPM:           snap.BPM,
		LastValidBPM:  snap.LastValidBPM,
		State:         snap.State.String(),
		Mode:          string(snap.Mode),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Notifier: NotifierJSON{
			Connected: snap.Connected,
			Transport: snap.Config.Transport,
			Broker:    snap.Config.Broker,
		},
		Counts: CountsJSON{
			Measuring:    snap.Counts.Measuring,
			Insufficient: snap.Counts.Insufficient,
			NoContact:    snap.Counts.NoContact,
			Stopped:      snap.Counts.Stopped,
		},
		Dropped: DroppedJSON{
			Commands: snap.DroppedCommands,
			Updates:  snap.DroppedUpdates,
		},
		Config: ConfigJSON{
			BackgroundPeriodMs: snap.Config.BackgroundPeriodMs,
			BackgroundWindowMs: snap.Config.BackgroundWindowMs,
			SampleIntervalMs:   snap.Config.SampleIntervalMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			HTTPAddr:           snap.Config.HTTPAddr,
			RawStream:          snap.Config.RawStream,
		},
	}
	if !snap.UpdatedAt.IsZero() {
		inner.UpdatedAt = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for a system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
