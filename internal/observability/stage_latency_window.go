package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// StageLatencyStats summarizes turn latency for one interview stage over
// the rolling window.
type StageLatencyStats struct {
	Stage   string  `json:"stage"`
	Samples int     `json:"samples"`
	LastMS  float64 `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
}

// StageIndicator counts notable non-latency events, such as generation
// fallbacks, inside the window's lifetime.
type StageIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StageLatencySnapshot is the serializable view served on the perf endpoint.
type StageLatencySnapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	WindowSize  int                 `json:"window_size"`
	Stages      []StageLatencyStats `json:"stages"`
	Indicators  []StageIndicator    `json:"indicators,omitempty"`
}

// StageLatencyWindow keeps a bounded ring of latency samples per stage.
type StageLatencyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	stages     map[string]*latencyRing
	indicators map[string]int
}

type latencyRing struct {
	values []float64
	next   int
	filled bool
	last   float64
}

func NewStageLatencyWindow(maxSamples int) *StageLatencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &StageLatencyWindow{
		maxSamples: maxSamples,
		stages:     make(map[string]*latencyRing),
		indicators: make(map[string]int),
	}
}

func (w *StageLatencyWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.stages[stage]
	if !ok {
		ring = &latencyRing{values: make([]float64, w.maxSamples)}
		w.stages[stage] = ring
	}
	ring.values[ring.next] = ms
	ring.last = ms
	ring.next++
	if ring.next >= len(ring.values) {
		ring.next = 0
		ring.filled = true
	}
}

func (w *StageLatencyWindow) ObserveIndicator(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *StageLatencyWindow) Snapshot() StageLatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.stages))
	for stage := range w.stages {
		keys = append(keys, stage)
	}
	sort.Strings(keys)

	stages := make([]StageLatencyStats, 0, len(keys))
	for _, stage := range keys {
		ring := w.stages[stage]
		n := ring.next
		if ring.filled {
			n = len(ring.values)
		}
		if n <= 0 {
			continue
		}
		samples := make([]float64, n)
		copy(samples, ring.values[:n])
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}
		stages = append(stages, StageLatencyStats{
			Stage:   stage,
			Samples: n,
			LastMS:  round2(ring.last),
			AvgMS:   round2(sum / float64(n)),
			P50MS:   round2(quantile(samples, 0.50)),
			P95MS:   round2(quantile(samples, 0.95)),
		})
	}

	indicatorKeys := make([]string, 0, len(w.indicators))
	for name := range w.indicators {
		indicatorKeys = append(indicatorKeys, name)
	}
	sort.Strings(indicatorKeys)
	indicators := make([]StageIndicator, 0, len(indicatorKeys))
	for _, name := range indicatorKeys {
		if w.indicators[name] > 0 {
			indicators = append(indicators, StageIndicator{Name: name, Count: w.indicators[name]})
		}
	}

	return StageLatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Stages:      stages,
		Indicators:  indicators,
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
