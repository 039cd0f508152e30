// Package tracker turns a stream of pose frames into curl repetitions, sets,
// rest periods and posture feedback for one user.
package tracker

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/meltforce/curlcoach/internal/angle"
	"github.com/meltforce/curlcoach/internal/pose"
)

// Side is the arm being trained.
type Side string

const (
	Right Side = "right"
	Left  Side = "left"
)

// Phase is the session-level state.
type Phase string

const (
	CountingRight Phase = "counting_right"
	CountingLeft  Phase = "counting_left"
	Resting       Phase = "resting"
	Complete      Phase = "complete"
)

const (
	instrStartRight = "Start with right arm"
	instrSwitchLeft = "Switch to left arm"
	instrDone       = "Great job! You've completed your workout!"
	instrDoneDetail = "Keep up the good work!"
	instrNextSet    = "Next set: Right arm turn"
)

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock used for rest deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the exercise state of one tracked user. It is mutated only by
// Tick; each tick runs to completion before the next one starts.
type Session struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	phase     Phase
	active    Side
	rightReps int
	leftReps  int
	sets      int

	reps    repCounter
	posture postureMonitor

	restDeadline  time.Time
	restRemaining int

	instruction string
	// detail replaces the posture instruction while resting or complete.
	detail string

	rightCue ArmCue
	leftCue  ArmCue

	frames       int
	framesNoPose int
}

// NewSession validates cfg and returns a session counting the right arm.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		cfg:         cfg,
		now:         time.Now,
		phase:       CountingRight,
		active:      Right,
		reps:        newRepCounter(cfg),
		posture:     newPostureMonitor(cfg),
		instruction: instrStartRight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the session's immutable configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Tick consumes one frame and returns what happened during it. Degraded
// input never fails: it only means nothing changes this tick.
func (s *Session) Tick(f pose.Frame) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Complete {
		return 0
	}
	s.frames++

	// The deadline is wall-clock based, so it is checked even when the
	// frame has no pose and detection gaps cannot stretch a rest.
	if s.phase == Resting {
		return s.checkRest(s.now())
	}

	if !f.HasPose() {
		s.framesNoPose++
		return 0
	}
	return s.count(f)
}

func (s *Session) count(f pose.Frame) Event {
	right := angle.Joint(f.Point(pose.RightShoulder), f.Point(pose.RightElbow), f.Point(pose.RightWrist))
	left := angle.Joint(f.Point(pose.LeftShoulder), f.Point(pose.LeftElbow), f.Point(pose.LeftWrist))
	s.rightCue = cueFor(right, s.cfg.UpThreshold)
	s.leftCue = cueFor(left, s.cfg.UpThreshold)

	torso := angle.Segment(f.Point(pose.Nose), f.Point(pose.RightHip))
	var upperArm, flex angle.Sample
	if s.active == Right {
		upperArm = angle.Segment(f.Point(pose.RightShoulder), f.Point(pose.RightElbow))
		flex = right
	} else {
		upperArm = angle.Segment(f.Point(pose.LeftShoulder), f.Point(pose.LeftElbow))
		flex = left
	}

	s.posture.observe(torso, upperArm)
	if s.posture.incorrect {
		return 0
	}
	if !s.reps.step(flex) {
		return 0
	}

	ev := RepCounted
	if s.phase == CountingRight {
		s.rightReps++
		if s.rightReps == s.cfg.TargetReps {
			s.phase = CountingLeft
			s.active = Left
			s.reps.reset()
			s.instruction = instrSwitchLeft
			ev |= SideSwitched
		}
		return ev
	}

	s.leftReps++
	if s.leftReps == s.cfg.TargetReps {
		ev |= s.completeSet()
	}
	return ev
}

func (s *Session) completeSet() Event {
	s.sets++
	if s.sets == s.cfg.TargetSets {
		s.phase = Complete
		s.instruction = instrDone
		s.detail = instrDoneDetail
		return SetCompleted | WorkoutCompleted
	}

	s.rightReps = 0
	s.leftReps = 0
	s.reps.reset()
	s.phase = Resting
	s.active = Right
	s.restDeadline = s.now().Add(s.cfg.RestDuration)
	s.restRemaining = int(s.cfg.RestDuration / time.Second)
	s.instruction = fmt.Sprintf("Completed Set %d. Rest for %d seconds.", s.sets, s.restRemaining)
	s.detail = instrNextSet
	return SetCompleted | RestStarted
}

func (s *Session) checkRest(now time.Time) Event {
	if now.Before(s.restDeadline) {
		s.restRemaining = int(math.Ceil(s.restDeadline.Sub(now).Seconds()))
		s.detail = fmt.Sprintf("Rest: %d seconds left", s.restRemaining)
		return 0
	}

	s.phase = CountingRight
	s.restDeadline = time.Time{}
	s.restRemaining = 0
	s.reps.reset()
	s.posture = newPostureMonitor(s.cfg)
	s.instruction = fmt.Sprintf("Start Set %d with your right arm", s.sets+1)
	s.detail = ""
	return RestEnded
}

// State returns a snapshot of the session as of the last tick. It does not
// read the clock, so repeated calls without new frames are identical.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	postureInstr := s.posture.instruction
	if s.phase == Resting || s.phase == Complete {
		postureInstr = s.detail
	}
	snap := Snapshot{
		Phase:              s.phase,
		CurrentArm:         s.active,
		RightReps:          s.rightReps,
		LeftReps:           s.leftReps,
		Sets:               s.sets,
		TargetReps:         s.cfg.TargetReps,
		TargetSets:         s.cfg.TargetSets,
		Resting:            s.phase == Resting,
		WorkoutComplete:    s.phase == Complete,
		IncorrectPosture:   s.posture.incorrect,
		PostureStreak:      s.posture.streak,
		Instruction:        s.instruction,
		PostureInstruction: postureInstr,
		RepPhase:           s.reps.phase,
		RightStatus:        s.rightCue,
		LeftStatus:         s.leftCue,
		Frames:             s.frames,
		FramesNoPose:       s.framesNoPose,
	}
	if snap.Resting {
		snap.RestRemaining = s.restRemaining
	}
	return snap
}
