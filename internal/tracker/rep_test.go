package tracker

import (
	"testing"

	"github.com/meltforce/curlcoach/internal/angle"
)

func countReps(samples []angle.Sample) (reps int, firstAt int) {
	r := newRepCounter(DefaultConfig())
	firstAt = -1
	for i, s := range samples {
		if r.step(s) {
			reps++
			if firstAt < 0 {
				firstAt = i
			}
		}
	}
	return reps, firstAt
}

func degs(vals ...float64) []angle.Sample {
	out := make([]angle.Sample, len(vals))
	for i, v := range vals {
		out[i] = angle.Of(v)
	}
	return out
}

func TestRepCounter(t *testing.T) {
	tests := []struct {
		name      string
		samples   []angle.Sample
		wantReps  int
		wantFirst int
	}{
		{"single rep", degs(180, 85, 182), 1, 2},
		{"never flexed", degs(180, 100, 182), 0, -1},
		{"oscillation at down threshold", degs(95, 85, 95, 85, 182), 1, 4},
		{"oscillation at up threshold", degs(85, 165, 155, 165, 155), 1, 1},
		{"two reps", degs(170, 80, 170, 80, 170), 2, 2},
		{"band only", degs(100, 120, 150, 130), 0, -1},
		{"thresholds are strict", degs(90, 160, 89, 160, 161), 1, 4},
		{"undefined ignored", []angle.Sample{angle.Of(85), angle.Undefined, angle.Undefined, angle.Of(170)}, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reps, first := countReps(tt.samples)
			if reps != tt.wantReps {
				t.Errorf("reps = %d, want %d", reps, tt.wantReps)
			}
			if first != tt.wantFirst {
				t.Errorf("first rep at sample %d, want %d", first, tt.wantFirst)
			}
		})
	}
}

// TestRepCounterUndefinedKeepsPhase verifies an undefined sample is a no-op
// rather than a low or high reading.
func TestRepCounterUndefinedKeepsPhase(t *testing.T) {
	r := newRepCounter(DefaultConfig())
	r.step(angle.Of(80))
	r.step(angle.Undefined)
	if r.phase != PhaseFlexed {
		t.Errorf("phase = %s, want %s", r.phase, PhaseFlexed)
	}
}

func TestRepCounterReset(t *testing.T) {
	r := newRepCounter(DefaultConfig())
	r.step(angle.Of(80))
	r.reset()
	if r.step(angle.Of(170)) {
		t.Error("rep counted after reset discarded the flexion")
	}
}
