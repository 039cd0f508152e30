package tracker

import "github.com/meltforce/curlcoach/internal/angle"

// RepPhase is the position of the active arm within one repetition.
type RepPhase string

const (
	// PhaseWaiting: not yet confirmed flexed since the last counted rep.
	PhaseWaiting RepPhase = "waiting"
	// PhaseFlexed: confirmed flexed, a full extension will count the rep.
	PhaseFlexed RepPhase = "flexed"
)

// repCounter turns a continuous elbow angle into discrete reps. The band
// between the two thresholds causes no transition, so oscillation around a
// single threshold counts nothing.
type repCounter struct {
	down, up float64
	phase    RepPhase
}

func newRepCounter(cfg Config) repCounter {
	return repCounter{down: cfg.DownThreshold, up: cfg.UpThreshold, phase: PhaseWaiting}
}

// step advances the machine and reports whether a rep was completed.
func (r *repCounter) step(s angle.Sample) bool {
	if !s.Defined() {
		return false
	}
	switch r.phase {
	case PhaseWaiting:
		if s.Degrees < r.down {
			r.phase = PhaseFlexed
		}
	case PhaseFlexed:
		if s.Degrees > r.up {
			r.phase = PhaseWaiting
			return true
		}
	}
	return false
}

// reset discards any half-completed rep.
func (r *repCounter) reset() {
	r.phase = PhaseWaiting
}
