package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pet-feeder/internal/feeder"
	"github.com/sweeney/pet-feeder/internal/servo"
	"github.com/sweeney/pet-feeder/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pet Feeder</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.feeding { color: green; font-weight: bold; }
.idle { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
button { font-family: monospace; padding: 6px 16px; cursor: pointer; }
button.feed { font-size: 1.2em; padding: 10px 32px; }
select, input { font-family: monospace; padding: 4px; }
input[type=number] { width: 6em; }
#message { min-height: 1.2em; color: #333; }
</style>
</head>
<body>
<h1>Pet Feeder</h1>

<p><button class="feed" id="feed-btn">Feed Now</button></p>
<p id="message">Ready</p>

<h2>State</h2>
<table>
<tr><th>Servo</th><td id="servo-state" class="{{if .Feed.ResetArmed}}feeding{{else}}idle{{end}}">{{if .Feed.ResetArmed}}FEEDING{{else}}AT REST{{end}}</td></tr>
<tr><th>Current duty</th><td id="current-duty">{{.Feed.CurrentDuty}}</td></tr>
<tr><th>Feeds</th><td id="feed-count">{{.Feed.Counts.Total}}</td></tr>
</table>

<h2>Auto Feeding</h2>
<table>
<tr><th>Interval</th><td>
<select id="timer-select">
<option value="0">Disabled</option>
<option value="30">30 minutes</option>
<option value="60">1 hour</option>
<option value="120">2 hours</option>
<option value="180">3 hours</option>
<option value="240">4 hours</option>
<option value="360">6 hours</option>
<option value="720">12 hours</option>
<option value="1440">24 hours</option>
</select>
<button id="timer-btn">Set</button>
</td></tr>
<tr><th>Status</th><td id="timer-status">{{if .Feed.AutoEnabled}}every {{.Feed.Config.AutoFeedMinutes}} minutes{{else}}disabled{{end}}</td></tr>
</table>

<h2>Servo Tuning</h2>
<table>
<tr><th>Rest duty</th><td><input type="number" id="rest-duty" value="{{.Feed.Config.RestDuty}}" min="{{.MinDuty}}" max="{{.MaxDuty}}"> <button data-pos="rest">Set</button></td></tr>
<tr><th>Feed duty</th><td><input type="number" id="feed-duty" value="{{.Feed.Config.FeedDuty}}" min="{{.MinDuty}}" max="{{.MaxDuty}}"> <button data-pos="feed">Set</button></td></tr>
<tr><th>Test position</th><td><input type="number" id="current-input" value="{{.Feed.CurrentDuty}}" min="{{.MinDuty}}" max="{{.MaxDuty}}"> <button data-pos="current">Move</button></td></tr>
<tr><th>Reset delay</th><td><input type="number" id="reset-delay" value="{{.Feed.Config.ResetDelay.Milliseconds}}" min="1"> ms <button id="delay-btn">Set</button></td></tr>
<tr><th>Duty range</th><td>{{.MinDuty}}&ndash;{{.MaxDuty}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .Daemon.MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .Daemon.MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
{{if .Daemon.Config.Broker}}<tr><th>Broker</th><td>{{.Daemon.Config.Broker}}</td></tr>{{end}}
{{if .Daemon.Network}}<tr><th>Network</th><td>{{.Daemon.Network.Status}} ({{.Daemon.Network.Type}}{{if .Daemon.Network.SSID}} — {{.Daemon.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Daemon.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.Daemon.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Daemon.Config.HeartbeatMs 0}}disabled{{else}}{{.Daemon.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Daemon.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var msg = document.getElementById("message");
  var msgTimer = null;

  function show(text) {
    msg.textContent = text;
    clearTimeout(msgTimer);
    msgTimer = setTimeout(function() { msg.textContent = "Ready"; }, 3000);
  }

  function refresh() {
    fetch("/index.json")
      .then(function(r) { return r.json(); })
      .then(function(data) {
        var st = data.status;
        var el = document.getElementById("servo-state");
        el.textContent = st.feeding ? "FEEDING" : "AT REST";
        el.className = st.feeding ? "feeding" : "idle";
        document.getElementById("current-duty").textContent = st.current_duty;
        document.getElementById("feed-count").textContent = st.event_counts.total_feeds;
        document.getElementById("timer-status").textContent =
          st.schedule.enabled ? "every " + st.schedule.interval_minutes + " minutes" : "disabled";
      })
      .catch(function() {});
  }
  setInterval(refresh, 2000);

  document.getElementById("feed-btn").addEventListener("click", function() {
    show("Feeding...");
    fetch("/feed", { method: "POST" })
      .then(function(r) { return r.text(); })
      .then(show)
      .catch(function(e) { show("Error: " + e); });
  });

  document.getElementById("timer-btn").addEventListener("click", function() {
    var minutes = document.getElementById("timer-select").value;
    fetch("/set_timer?minutes=" + minutes)
      .then(function(r) { return r.text(); })
      .then(function(t) { show(t); refresh(); })
      .catch(function(e) { show("Error: " + e); });
  });

  function setPWM(body) {
    fetch("/set_pwm", {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify(body)
    })
      .then(function(r) { return r.json().catch(function() { return { message: "request failed" }; }); })
      .then(function(data) { show(data.message || "OK"); refresh(); })
      .catch(function(e) { show("Error: " + e); });
  }

  var inputs = { rest: "rest-duty", feed: "feed-duty", current: "current-input" };
  document.querySelectorAll("button[data-pos]").forEach(function(btn) {
    btn.addEventListener("click", function() {
      var pos = btn.getAttribute("data-pos");
      var value = parseInt(document.getElementById(inputs[pos]).value, 10);
      if (isNaN(value)) { show("Invalid duty value"); return; }
      setPWM({ pwm: value, position: pos });
    });
  });

  document.getElementById("delay-btn").addEventListener("click", function() {
    var value = parseInt(document.getElementById("reset-delay").value, 10);
    if (isNaN(value)) { show("Invalid delay value"); return; }
    setPWM({ delay: value });
  });
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, daemon status.Snapshot, feed feeder.Snapshot) {
	data := struct {
		Daemon  status.Snapshot
		Feed    feeder.Snapshot
		Uptime  time.Duration
		MinDuty uint32
		MaxDuty uint32
	}{
		Daemon:  daemon,
		Feed:    feed,
		Uptime:  daemon.Uptime(),
		MinDuty: servo.MinDuty,
		MaxDuty: servo.MaxDuty,
	}
	indexTmpl.Execute(w, data)
}
