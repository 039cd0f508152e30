package tracker

import "github.com/meltforce/curlcoach/internal/angle"

// ArmCue tells the user which way to move an arm next.
type ArmCue string

const (
	CueUnknown ArmCue = ""
	CueFlex    ArmCue = "flex"
	CueRelax   ArmCue = "relax"
)

// cueFor is informational only and never drives a transition.
func cueFor(s angle.Sample, up float64) ArmCue {
	if !s.Defined() {
		return CueUnknown
	}
	if s.Degrees > up {
		return CueFlex
	}
	return CueRelax
}

// Snapshot is the externally visible session state after a tick.
type Snapshot struct {
	Phase      Phase `json:"phase"`
	CurrentArm Side  `json:"current_arm"`

	RightReps  int `json:"right_reps"`
	LeftReps   int `json:"left_reps"`
	Sets       int `json:"sets"`
	TargetReps int `json:"target_reps"`
	TargetSets int `json:"target_sets"`

	Resting         bool `json:"is_resting"`
	RestRemaining   int  `json:"rest_remaining_seconds,omitempty"`
	WorkoutComplete bool `json:"workout_complete"`

	IncorrectPosture bool `json:"incorrect_posture"`
	PostureStreak    int  `json:"posture_streak"`

	Instruction        string   `json:"instruction"`
	PostureInstruction string   `json:"posture_instruction"`
	RepPhase           RepPhase `json:"rep_phase"`

	RightStatus ArmCue `json:"right_status"`
	LeftStatus  ArmCue `json:"left_status"`

	Frames       int `json:"frames"`
	FramesNoPose int `json:"frames_without_pose"`
}

// Event is a bit set of the transitions one tick produced.
type Event uint8

const (
	RepCounted Event = 1 << iota
	SideSwitched
	SetCompleted
	RestStarted
	RestEnded
	WorkoutCompleted
)

var eventNames = []struct {
	ev   Event
	name string
}{
	{RepCounted, "rep_counted"},
	{SideSwitched, "side_switched"},
	{SetCompleted, "set_completed"},
	{RestStarted, "rest_started"},
	{RestEnded, "rest_ended"},
	{WorkoutCompleted, "workout_completed"},
}

// Has reports whether every bit of other is set.
func (e Event) Has(other Event) bool {
	return e&other == other
}

// Names lists the set events in transition order.
func (e Event) Names() []string {
	names := []string{}
	for _, n := range eventNames {
		if e.Has(n.ev) {
			names = append(names, n.name)
		}
	}
	return names
}
