package tracker

import (
	"testing"

	"github.com/meltforce/curlcoach/internal/angle"
)

// TestPostureStreakHysteresis verifies five deviating ticks are tolerated,
// the sixth flags posture, and one compliant tick clears it.
func TestPostureStreakHysteresis(t *testing.T) {
	p := newPostureMonitor(DefaultConfig())
	torso, bent := angle.Of(90), angle.Of(75)

	for i := 1; i <= 5; i++ {
		p.observe(torso, bent)
		if p.incorrect {
			t.Fatalf("incorrect after %d deviating ticks, want tolerated", i)
		}
	}
	p.observe(torso, bent)
	if !p.incorrect {
		t.Fatal("incorrect = false after 6 deviating ticks")
	}
	if p.instruction != instrArmStill {
		t.Errorf("instruction = %q, want %q", p.instruction, instrArmStill)
	}

	// Sticky while deviation persists.
	p.observe(torso, bent)
	if !p.incorrect {
		t.Error("incorrect cleared while still deviating")
	}

	p.observe(torso, angle.Of(92))
	if p.incorrect {
		t.Error("incorrect still set after compliant tick")
	}
	if p.streak != 0 {
		t.Errorf("streak = %d, want 0", p.streak)
	}
	if p.instruction != "" {
		t.Errorf("instruction = %q, want empty", p.instruction)
	}
}

// TestPostureUndefinedSkipped verifies missing data is never read as bad posture.
func TestPostureUndefinedSkipped(t *testing.T) {
	p := newPostureMonitor(DefaultConfig())
	p.observe(angle.Of(90), angle.Of(60))
	p.observe(angle.Of(90), angle.Of(60))

	p.observe(angle.Undefined, angle.Of(60))
	p.observe(angle.Of(60), angle.Undefined)
	if p.streak != 2 {
		t.Errorf("streak = %d, want 2", p.streak)
	}
	if p.incorrect {
		t.Error("incorrect set by undefined samples")
	}
}

// TestPostureTorsoLean verifies a leaning torso flags posture immediately,
// overriding an otherwise compliant arm, and recovers on the next upright tick.
func TestPostureTorsoLean(t *testing.T) {
	p := newPostureMonitor(DefaultConfig())

	p.observe(angle.Of(75), angle.Of(76))
	if !p.incorrect {
		t.Fatal("incorrect = false with torso 15 degrees off vertical")
	}
	if p.instruction != instrStandStraight {
		t.Errorf("instruction = %q, want %q", p.instruction, instrStandStraight)
	}

	p.observe(angle.Of(88), angle.Of(89))
	if p.incorrect {
		t.Error("incorrect still set after upright compliant tick")
	}
}

// TestPostureLeanRecoveryKeepsStreak verifies that once the torso is upright
// again, a short deviation streak does not keep the lean warning alive.
func TestPostureLeanRecoveryKeepsStreak(t *testing.T) {
	p := newPostureMonitor(DefaultConfig())
	p.observe(angle.Of(70), angle.Of(90)) // lean and deviating: streak 1
	if !p.incorrect {
		t.Fatal("lean not flagged")
	}
	p.observe(angle.Of(90), angle.Of(70)) // upright, still deviating: streak 2
	if p.incorrect {
		t.Error("incorrect = true with streak below limit and upright torso")
	}
	if p.streak != 2 {
		t.Errorf("streak = %d, want 2", p.streak)
	}
}
