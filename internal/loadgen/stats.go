package loadgen

import (
	"sync/atomic"
	"time"
)

// Stats accumulates generator counters. Unlike the single-event-loop
// original runner, Go goroutines update it concurrently, so every field uses
// atomic operations instead of the implicit single-threaded safety spec §5
// describes for the original runtime.
type Stats struct {
	startedAt int64 // unix nanos
	lastTick  int64 // unix nanos

	sent     int64
	ok       int64
	fail     int64
	inFlight int64
	latSumMs int64 // milliseconds, summed
}

// newStats returns a Stats started now.
func newStats() *Stats {
	return &Stats{startedAt: time.Now().UnixNano()}
}

func (s *Stats) markTick(t time.Time) {
	atomic.StoreInt64(&s.lastTick, t.UnixNano())
}

func (s *Stats) incInFlight() { atomic.AddInt64(&s.inFlight, 1) }
func (s *Stats) decInFlight() { atomic.AddInt64(&s.inFlight, -1) }

func (s *Stats) recordResult(ok bool, latency time.Duration) {
	atomic.AddInt64(&s.sent, 1)
	atomic.AddInt64(&s.latSumMs, latency.Milliseconds())
	if ok {
		atomic.AddInt64(&s.ok, 1)
	} else {
		atomic.AddInt64(&s.fail, 1)
	}
}

// Snapshot is the point-in-time view returned by Runner.Status (spec §4.3,
// §6's `/rdg/status` response).
type Snapshot struct {
	UptimeSeconds float64   `json:"uptime_sec"`
	Sent          int64     `json:"sent"`
	OK            int64     `json:"ok"`
	Fail          int64     `json:"fail"`
	InFlight      int64     `json:"in_flight"`
	AvgLatencyMs  float64   `json:"avg_latency_ms"`
	LastTick      time.Time `json:"last_tick,omitempty"`
}

func (s *Stats) snapshot() Snapshot {
	startedAt := atomic.LoadInt64(&s.startedAt)
	sent := atomic.LoadInt64(&s.sent)
	latSum := atomic.LoadInt64(&s.latSumMs)

	// latSumMs accumulates latency for every completed request, ok or fail
	// (recordResult adds to it unconditionally), so the average must divide
	// by sent, not ok — dividing by ok alone overstates average latency
	// whenever any request fails.
	var avgLatency float64
	if sent > 0 {
		avgLatency = float64(latSum) / float64(sent)
	}

	var lastTick time.Time
	if t := atomic.LoadInt64(&s.lastTick); t != 0 {
		lastTick = time.Unix(0, t)
	}

	return Snapshot{
		UptimeSeconds: time.Since(time.Unix(0, startedAt)).Seconds(),
		Sent:          sent,
		OK:            atomic.LoadInt64(&s.ok),
		Fail:          atomic.LoadInt64(&s.fail),
		InFlight:      atomic.LoadInt64(&s.inFlight),
		AvgLatencyMs:  avgLatency,
		LastTick:      lastTick,
	}
}
