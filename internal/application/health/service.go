// Package health collects the dependency, runtime and traffic figures shown on
// the status dashboard and returned by /health/json.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"marketplace-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
	StatusReachable    = "reachable"
	StatusUnreachable  = "unreachable"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Dependency is an optional component checked alongside the database and
// Redis. Required dependencies turn the overall status to "issue" when down.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Required bool
}

type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	Sys      int `json:"sys"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int         `json:"totalRequests"`
	SuccessCount    int         `json:"successCount"`
	FailedCount     int         `json:"failedCount"`
	SuccessRate     string      `json:"successRate"`
	AvgResponseTime interface{} `json:"avgResponseTime"`
	LastRequest     interface{} `json:"lastRequest"`
}

type DepStatus struct {
	Status string      `json:"status"`
	PingMs interface{} `json:"pingMs"`
}

// Checker gathers health data. DB and Rdb may be nil and are then reported as
// disconnected.
type Checker struct {
	DB           Pinger
	Rdb          *redis.Client
	Dependencies []Dependency
	// FrontendURL is pinged over HTTP when set.
	FrontendURL string
	Timeout     time.Duration
}

func (h *Checker) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return 3 * time.Second
}

// Collect runs every check. It never fails; problems show up in the statuses.
func (h *Checker) Collect(ctx context.Context) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}
	healthy := true

	dbStatus := h.ping(ctx, h.DB)
	result.Dependencies["database"] = dbStatus
	healthy = healthy && dbStatus.Status == StatusConnected

	var redisPinger Pinger
	if h.Rdb != nil {
		redisPinger = PingFunc(func(ctx context.Context) error { return h.Rdb.Ping(ctx).Err() })
	}
	redisStatus := h.ping(ctx, redisPinger)
	result.Dependencies["redis"] = redisStatus
	healthy = healthy && redisStatus.Status == StatusConnected

	startTimeMs := time.Now().UnixMilli()
	result.Traffic = TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	if redisStatus.Status == StatusConnected {
		result.Traffic, startTimeMs = h.traffic(ctx, startTimeMs)
	}

	for _, d := range h.Dependencies {
		st := h.ping(ctx, d.Pinger)
		result.Dependencies[d.Name] = st
		if d.Required && st.Status != StatusConnected {
			healthy = false
		}
	}

	if h.FrontendURL != "" {
		fe := DepStatus{Status: StatusUnreachable}
		if ms := httpPing(ctx, h.FrontendURL, h.timeout()); ms != nil {
			fe = DepStatus{Status: StatusReachable, PingMs: ms}
		}
		result.Dependencies["frontend"] = fe
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{Sys: int(m.Sys / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}

	result.Status = "issue"
	if healthy {
		result.Status = "ok"
	}
	return result
}

func (h *Checker) ping(ctx context.Context, p Pinger) DepStatus {
	if p == nil {
		return DepStatus{Status: StatusDisconnected}
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return DepStatus{Status: StatusError}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: StatusConnected, PingMs: &ms}
}

// traffic reads the counters HealthMarker writes. The start time is seeded on
// first read so uptime survives restarts of individual instances.
func (h *Checker) traffic(ctx context.Context, startTimeMs int64) (TrafficInfo, int64) {
	stats := TrafficInfo{AvgResponseTime: 0, SuccessRate: "100"}
	vals, err := h.Rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	if err != nil {
		return stats, startTimeMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startTimeMs = t
	} else {
		h.Rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	countSum, _ := strconv.Atoi(str(3))
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if last := str(5); last != "" {
		var lastReq map[string]interface{}
		_ = json.Unmarshal([]byte(last), &lastReq)
		stats.LastRequest = lastReq
	}
	return stats, startTimeMs
}

func httpPing(ctx context.Context, url string, timeout time.Duration) *int64 {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	ms := time.Since(start).Milliseconds()
	return &ms
}
