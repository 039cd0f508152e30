package tracker

import (
	"math"

	"github.com/meltforce/curlcoach/internal/angle"
)

const (
	instrStandStraight = "Please stand straight"
	instrArmStill      = "Keep your upper arm still"
)

// postureMonitor de-bounces the upper-arm vs torso comparison so a single
// jittery frame cannot flag posture and freeze counting.
type postureMonitor struct {
	deviation   float64
	tolerance   float64
	streakLimit int

	streak      int
	incorrect   bool
	instruction string
}

func newPostureMonitor(cfg Config) postureMonitor {
	return postureMonitor{
		deviation:   cfg.PostureDeviation,
		tolerance:   cfg.TorsoTolerance,
		streakLimit: cfg.PostureStreakLimit,
	}
}

// observe folds one tick's torso and active upper-arm orientation into the
// posture state. Undefined input leaves everything untouched.
func (p *postureMonitor) observe(torso, upperArm angle.Sample) {
	if !torso.Defined() || !upperArm.Defined() {
		return
	}

	if math.Abs(torso.Degrees-upperArm.Degrees) < p.deviation {
		p.streak = 0
		p.incorrect = false
		p.instruction = ""
	} else {
		p.streak++
		if p.streak > p.streakLimit {
			p.incorrect = true
			p.instruction = instrArmStill
		}
	}

	if math.Abs(torso.Degrees-90) >= p.tolerance {
		p.incorrect = true
		p.instruction = instrStandStraight
	} else if p.instruction == instrStandStraight {
		// Lean corrected: fall back to the streak verdict.
		p.incorrect = p.streak > p.streakLimit
		p.instruction = ""
		if p.incorrect {
			p.instruction = instrArmStill
		}
	}
}
