package health

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// RenderDashboardHTML returns the status page served at GET /. The page
// renders the embedded snapshot and then polls /health/json a few times.
func RenderDashboardHTML(health CollectResult) string {
	b, _ := json.Marshal(health)
	// embedded in a JS template literal
	snapshot := strings.NewReplacer("\\", "\\\\", "`", "\\`", "$", "\\$", "</", "<\\/").Replace(string(b))

	names := make([]string, 0, len(health.Dependencies))
	for name := range health.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	var deps strings.Builder
	for _, name := range names {
		d := health.Dependencies[name]
		class := "err"
		if d.Status == StatusConnected || d.Status == StatusReachable {
			class = "ok"
		}
		fmt.Fprintf(&deps, `<div class="row"><span>%s</span><span id="dep-%s" class="pill %s">%s</span></div>`,
			html.EscapeString(name), html.EscapeString(name), class, html.EscapeString(d.Status))
	}

	headline := "All Systems Operational"
	if health.Status != "ok" {
		headline = "System Issues Detected"
	}

	return `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Marketplace API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --brand: #3b82f6; --dark: #1e293b; --bg: #f3f4f6; --muted: #6b7280; }
    body { background: var(--bg); color: var(--dark); font-family: Arial, Helvetica, sans-serif; margin: 0; padding: 40px 20px; }
    .container { max-width: 960px; margin: 0 auto; }
    h1 { font-size: 40px; margin: 0 0 8px 0; }
    .subtext { color: var(--muted); font-weight: 700; margin-bottom: 30px; }
    .card { background: #fff; border-radius: 16px; box-shadow: 0 10px 40px rgba(0,0,0,0.06); overflow: hidden; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); }
    .col { padding: 30px; border-right: 1px solid #eef2f7; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 20px; }
    .big { font-size: 34px; font-weight: 900; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 7px 0; border-bottom: 1px solid #f1f5f9; font-size: 14px; font-weight: 700; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; font-weight: 900; }
    .ok { background: rgba(59,130,246,0.1); color: var(--brand); }
    .err { background: rgba(239,68,68,0.1); color: #ef4444; }
    .footer { padding: 14px 30px; background: #f8fafc; font-family: monospace; font-size: 13px; display: flex; justify-content: space-between; }
    button { margin-top: 20px; background: transparent; border: 1px solid #d1d5db; border-radius: 8px; padding: 8px 16px; font-weight: 800; cursor: pointer; }
    #errors { margin-top: 20px; font-size: 13px; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    <h1 id="headline">` + headline + `</h1>
    <div class="subtext">Listings, messages and their dependencies.</div>
    <div class="card">
      <div class="grid">
        <div class="col">
          <div class="label">Traffic</div>
          <div class="big" id="total-req">` + fmt.Sprint(health.Traffic.TotalRequests) + `</div>
          <div class="row"><span>Failed</span><span id="failed-count">` + fmt.Sprint(health.Traffic.FailedCount) + `</span></div>
          <div class="row"><span>Success Rate</span><span id="success-rate">` + health.Traffic.SuccessRate + `%</span></div>
          <div class="row"><span>Avg Latency</span><span id="avg-time">` + fmt.Sprint(health.Traffic.AvgResponseTime) + `ms</span></div>
        </div>
        <div class="col">
          <div class="label">Runtime</div>
          <div class="big" id="uptime">-</div>
          <div class="row"><span>Heap Used</span><span id="mem-heap">` + fmt.Sprint(health.Runtime.Memory.HeapUsed) + ` MB</span></div>
          <div class="row"><span>Goroutines</span><span id="goroutines">` + fmt.Sprint(health.Runtime.Goroutines) + `</span></div>
          <div class="row"><span>Go</span><span>` + html.EscapeString(health.Runtime.GoVersion) + `</span></div>
        </div>
        <div class="col">
          <div class="label">Dependencies</div>
          ` + deps.String() + `
        </div>
      </div>
      <div class="footer"><span>LAST INBOUND</span><span id="last-req">-</span></div>
    </div>
    <button onclick="showErrors()">View Error Log</button>
    <div id="errors"></div>
  </div>
  <script>
    let left = 3;
    const fmt = (s) => { const h = Math.floor(s / 3600); const m = Math.floor((s % 3600) / 60); return h + 'h ' + m + 'm ' + (s % 60) + 's'; };
    const updateUI = (d) => {
      document.getElementById('total-req').innerText = d.traffic.totalRequests;
      document.getElementById('failed-count').innerText = d.traffic.failedCount;
      document.getElementById('success-rate').innerText = d.traffic.successRate + '%';
      document.getElementById('avg-time').innerText = d.traffic.avgResponseTime + 'ms';
      document.getElementById('uptime').innerText = fmt(d.runtime.uptimeSeconds);
      document.getElementById('mem-heap').innerText = d.runtime.memory.heapUsed + ' MB';
      document.getElementById('goroutines').innerText = d.runtime.goroutines;
      if (d.traffic.lastRequest) { document.getElementById('last-req').innerText = d.traffic.lastRequest.method + ' ' + d.traffic.lastRequest.path; }
      for (const [name, dep] of Object.entries(d.dependencies)) {
        const el = document.getElementById('dep-' + name);
        if (!el) continue;
        const ok = dep.status === 'connected' || dep.status === 'reachable';
        el.className = 'pill ' + (ok ? 'ok' : 'err');
        el.innerText = dep.status + (dep.pingMs != null ? ' · ' + dep.pingMs + ' ms' : '');
      }
      document.getElementById('headline').innerText = d.status === 'ok' ? 'All Systems Operational' : 'System Issues Detected';
    };
    async function tick() { if (left-- <= 0) return; try { const r = await fetch('/health/json'); updateUI(await r.json()); } catch (e) {} }
    async function showErrors() {
      const list = document.getElementById('errors');
      try {
        const errors = await (await fetch('/health/errors')).json();
        list.innerText = errors.length === 0 ? 'No internal errors recorded.' : errors.map(e => e.time + ' ' + (e.method || '') + ' ' + (e.path || '') + ': ' + (e.message || '')).join('\n');
      } catch (e) { list.innerText = 'Error loading logs.'; }
    }
    updateUI(JSON.parse(` + "`" + snapshot + "`" + `));
    setInterval(tick, 10000);
  </script>
</body>
</html>`
}
