package observability

import (
	"testing"
)

func TestWindowSnapshotStats(t *testing.T) {
	w := NewStageLatencyWindow(16)
	for _, ms := range []float64{10, 20, 30, 40} {
		w.Observe("technical", ms)
	}
	w.Observe("behavioral", 100)

	snap := w.Snapshot()
	if snap.WindowSize != 16 {
		t.Fatalf("WindowSize = %d", snap.WindowSize)
	}
	if len(snap.Stages) != 2 {
		t.Fatalf("stages = %d, want 2", len(snap.Stages))
	}
	// Sorted by stage name: behavioral first.
	if snap.Stages[0].Stage != "behavioral" || snap.Stages[1].Stage != "technical" {
		t.Fatalf("stage order: %+v", snap.Stages)
	}
	tech := snap.Stages[1]
	if tech.Samples != 4 || tech.LastMS != 40 || tech.AvgMS != 25 || tech.P50MS != 25 {
		t.Fatalf("technical stats: %+v", tech)
	}
}

func TestWindowEvictsOldestSamples(t *testing.T) {
	w := NewStageLatencyWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe("intro", float64(i*100))
	}
	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("stages = %d", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want window size", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %v", s.LastMS)
	}
}

func TestWindowIgnoresInvalidObservations(t *testing.T) {
	w := NewStageLatencyWindow(4)
	w.Observe("", 10)
	w.Observe("intro", -5)
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("stages = %d, want 0", got)
	}
}

func TestWindowIndicators(t *testing.T) {
	w := NewStageLatencyWindow(4)
	w.ObserveIndicator("generation_fallback")
	w.ObserveIndicator("generation_fallback")
	w.ObserveIndicator("  ")

	snap := w.Snapshot()
	if len(snap.Indicators) != 1 {
		t.Fatalf("indicators = %+v", snap.Indicators)
	}
	if snap.Indicators[0].Name != "generation_fallback" || snap.Indicators[0].Count != 2 {
		t.Fatalf("indicator = %+v", snap.Indicators[0])
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	if got := quantile(sorted, 0); got != 10 {
		t.Fatalf("q0 = %v", got)
	}
	if got := quantile(sorted, 1); got != 40 {
		t.Fatalf("q1 = %v", got)
	}
	if got := quantile(sorted, 0.5); got != 25 {
		t.Fatalf("q0.5 = %v", got)
	}
	if got := quantile(nil, 0.5); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}
