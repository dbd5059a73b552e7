// Package stats keeps rolling build latency and outcome counts.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	outcome  string
}

// Snapshot aggregates the samples inside the window.
type Snapshot struct {
	Count    int            `json:"count"`
	MinMs    int64          `json:"min_ms"`
	MaxMs    int64          `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
	Outcomes map[string]int `json:"outcomes"`
}

// Window tracks builds finished within maxAge.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one finished build. Negative durations count as zero.
func (w *Window) Record(outcome string, d time.Duration) {
	d = max(d, 0)
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)
	w.samples = append(w.samples, sample{at: now, duration: d, outcome: outcome})
}

func (w *Window) Snapshot() Snapshot {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(now)

	snap := Snapshot{Outcomes: make(map[string]int)}
	if len(w.samples) == 0 {
		return snap
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	for _, s := range w.samples {
		ms := s.duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		snap.Outcomes[s.outcome]++
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	keep := w.samples[:0]
	for _, s := range w.samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	w.samples = keep
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(index-float64(lower))
}
