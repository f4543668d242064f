package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pulse-monitor/internal/logic"
	"github.com/sweeney/pulse-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"statusClass": func(st logic.Status) string {
		switch st {
		case logic.StatusMeasuring:
			return "measuring"
		case logic.StatusNoSkinContact, logic.StatusInsufficientData:
			return "waiting"
		}
		return "stopped"
	},
	"ms": func(v int64) string {
		return (time.Duration(v) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pulse Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.measuring { color: green; font-weight: bold; }
.waiting { color: orange; }
.stopped { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Pulse Monitor{{if .Live}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Heart Rate</h2>
<table>
<tr><th>Status</th><td id="hr-status" class="{{statusClass .Status}}">{{.Status}}</td></tr>
<tr><th>BPM</th><td id="hr-bpm">{{if .BPM}}{{.BPM}}{{else}}-{{end}}</td></tr>
<tr><th>Last valid</th><td id="hr-last">{{if .LastValidBPM}}{{.LastValidBPM}}{{else}}-{{end}}</td></tr>
<tr><th>Acquisition</th><td id="hr-state">{{.State}}</td></tr>
<tr><th>Mode</th><td id="hr-mode">{{.Mode}}</td></tr>
</table>

<form method="post" action="/api/start" style="display:inline"><button>Start</button></form>
<form method="post" action="/api/stop" style="display:inline"><button>Stop</button></form>

<h2>Connectivity</h2>
<table>
<tr><th>Notifier</th><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{.Config.Transport}} {{if .Connected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Reports</h2>
<table>
<tr><th>Measuring</th><td>{{.Counts.Measuring}}</td></tr>
<tr><th>Insufficient data</th><td>{{.Counts.Insufficient}}</td></tr>
<tr><th>No skin contact</th><td>{{.Counts.NoContact}}</td></tr>
<tr><th>Stopped</th><td>{{.Counts.Stopped}}</td></tr>
<tr><th>Dropped commands</th><td>{{.DroppedCommands}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Background period</th><td>{{ms .Config.BackgroundPeriodMs}}</td></tr>
<tr><th>Background window</th><td>{{ms .Config.BackgroundWindowMs}}</td></tr>
<tr><th>Sample interval</th><td>{{ms .Config.SampleIntervalMs}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{ms .Config.HeartbeatMs}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Live}}
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var el = {
    status: document.getElementById("hr-status"),
    bpm: document.getElementById("hr-bpm"),
    last: document.getElementById("hr-last"),
    state: document.getElementById("hr-state"),
    mode: document.getElementById("hr-mode")
  };

  function cls(st) {
    if (st === "MEASURING") return "measuring";
    if (st === "NO_SKIN_CONTACT" || st === "INSUFFICIENT_DATA") return "waiting";
    return "stopped";
  }

  function setDot(c, title) {
    dot.className = "live-dot " + c;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() { setDot("err", "offline"); setTimeout(connect, 5000); };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        el.status.textContent = s.measurement;
        el.status.className = cls(s.measurement);
        el.bpm.textContent = s.bpm || "-";
        el.last.textContent = s.last_valid_bpm || "-";
        el.state.textContent = s.state;
        el.mode.textContent = s.mode;
      } catch (e) {}
    };
  }
  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, live bool) {
	// The template needs Uptime as a field, not a method.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Live   bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Live:     live,
	}
	indexTmpl.Execute(w, data)
}
