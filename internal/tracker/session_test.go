package tracker

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/meltforce/curlcoach/internal/pose"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

const limb = 0.2

// armPoints places an elbow and wrist so the upper arm hangs tilt degrees off
// vertical and the elbow reads flex degrees. mirror is +1 for the right arm
// and -1 for the left.
func armPoints(shoulder pose.Keypoint, tilt, flex, mirror float64) (elbow, wrist pose.Keypoint) {
	tr := tilt * math.Pi / 180
	dx, dy := mirror*math.Sin(tr), math.Cos(tr)
	elbow = pose.Keypoint{X: shoulder.X + limb*dx, Y: shoulder.Y + limb*dy, Visibility: 1}

	// Rotate the elbow→shoulder ray by flex degrees to find the forearm.
	ux, uy := -dx, -dy
	fr := mirror * flex * math.Pi / 180
	wx := ux*math.Cos(fr) - uy*math.Sin(fr)
	wy := ux*math.Sin(fr) + uy*math.Cos(fr)
	wrist = pose.Keypoint{X: elbow.X + limb*wx, Y: elbow.Y + limb*wy, Visibility: 1}
	return elbow, wrist
}

// body builds an upright frame with the given elbow angles and upper-arm tilt.
func body(rightFlex, leftFlex, tilt float64) pose.Frame {
	rs := pose.Keypoint{X: 0.4, Y: 0.3, Visibility: 1}
	ls := pose.Keypoint{X: 0.6, Y: 0.3, Visibility: 1}
	re, rw := armPoints(rs, tilt, rightFlex, 1)
	le, lw := armPoints(ls, tilt, leftFlex, -1)
	return pose.Frame{
		Detected: true,
		Landmarks: map[pose.Landmark]pose.Keypoint{
			pose.Nose:          {X: 0.5, Y: 0.1, Visibility: 1},
			pose.RightHip:      {X: 0.5, Y: 0.9, Visibility: 1},
			pose.RightShoulder: rs,
			pose.RightElbow:    re,
			pose.RightWrist:    rw,
			pose.LeftShoulder:  ls,
			pose.LeftElbow:     le,
			pose.LeftWrist:     lw,
		},
	}
}

func rightArm(flex float64) pose.Frame { return body(flex, 170, 0) }
func leftArm(flex float64) pose.Frame  { return body(170, flex, 0) }

func newTestSession(t *testing.T, cfg Config, clock *fakeClock) *Session {
	t.Helper()
	s, err := NewSession(cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func feed(s *Session, frames ...pose.Frame) Event {
	var all Event
	for _, f := range frames {
		all |= s.Tick(f)
	}
	return all
}

func curls(arm func(float64) pose.Frame, n int) []pose.Frame {
	var frames []pose.Frame
	for range n {
		frames = append(frames, arm(170), arm(80), arm(170))
	}
	return frames
}

func TestNewSessionDefaults(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())
	st := s.State()
	if st.Phase != CountingRight || st.CurrentArm != Right {
		t.Errorf("phase/arm = %s/%s, want counting_right/right", st.Phase, st.CurrentArm)
	}
	if st.RepPhase != PhaseWaiting {
		t.Errorf("rep phase = %s, want waiting", st.RepPhase)
	}
	if st.Instruction != instrStartRight {
		t.Errorf("instruction = %q", st.Instruction)
	}
	if st.TargetReps != 10 || st.TargetSets != 3 {
		t.Errorf("targets = %d/%d, want 10/3", st.TargetReps, st.TargetSets)
	}
}

// TestNewSessionInvalidConfig verifies bad targets fail construction instead
// of being clamped.
func TestNewSessionInvalidConfig(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.TargetReps = 0 },
		func(c *Config) { c.TargetSets = -1 },
		func(c *Config) { c.RestDuration = 0 },
		func(c *Config) { c.RestDuration = 1500 * time.Millisecond },
		func(c *Config) { c.DownThreshold = 170 },
		func(c *Config) { c.UpThreshold = 200 },
		func(c *Config) { c.PostureDeviation = 0 },
		func(c *Config) { c.TorsoTolerance = 0 },
		func(c *Config) { c.PostureStreakLimit = -1 },
	}
	for i, m := range mutate {
		cfg := DefaultConfig()
		m(&cfg)
		if _, err := NewSession(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}

// TestFullWorkoutSingleSet walks two reps per arm through a one-set workout
// and expects completion with no rest period.
func TestFullWorkoutSingleSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetReps = 2
	cfg.TargetSets = 1
	s := newTestSession(t, cfg, newClock())

	ev := feed(s, curls(rightArm, 2)...)
	st := s.State()
	if st.RightReps != 2 {
		t.Fatalf("right reps = %d, want 2", st.RightReps)
	}
	if !ev.Has(SideSwitched) || st.CurrentArm != Left || st.Phase != CountingLeft {
		t.Fatalf("arm = %s phase = %s, want left/counting_left", st.CurrentArm, st.Phase)
	}
	if st.RepPhase != PhaseWaiting {
		t.Errorf("rep phase = %s after switch, want waiting", st.RepPhase)
	}
	if st.Instruction != instrSwitchLeft {
		t.Errorf("instruction = %q, want %q", st.Instruction, instrSwitchLeft)
	}

	ev = feed(s, curls(leftArm, 2)...)
	st = s.State()
	if st.Sets != 1 || !st.WorkoutComplete || st.Phase != Complete {
		t.Fatalf("sets = %d complete = %v phase = %s", st.Sets, st.WorkoutComplete, st.Phase)
	}
	if st.Resting || ev.Has(RestStarted) {
		t.Error("rest entered after final set")
	}
	if !ev.Has(WorkoutCompleted) {
		t.Errorf("events = %v, want workout_completed", ev.Names())
	}

	// Terminal: nothing changes afterwards.
	before := s.State()
	feed(s, curls(leftArm, 3)...)
	if after := s.State(); after != before {
		t.Errorf("state changed after completion:\n before %+v\n after  %+v", before, after)
	}
}

// TestSideSwitchStartsWaiting verifies the left arm must flex on its own
// before its first extension is credited.
func TestSideSwitchStartsWaiting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetReps = 1
	s := newTestSession(t, cfg, newClock())

	feed(s, rightArm(80), rightArm(170))
	if s.State().CurrentArm != Left {
		t.Fatal("did not switch to left")
	}
	// Right arm flexing does not prime the left arm.
	feed(s, body(80, 170, 0), leftArm(170))
	if got := s.State().LeftReps; got != 0 {
		t.Errorf("left reps = %d, want 0", got)
	}
	feed(s, leftArm(80), leftArm(170))
	if got := s.State().Sets; got != 1 {
		t.Errorf("sets = %d, want 1", got)
	}
}

// TestRestTiming verifies the rest period ends on wall-clock time, independent
// of how many frames arrive.
func TestRestTiming(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetReps = 1
	cfg.TargetSets = 2
	clock := newClock()
	s := newTestSession(t, cfg, clock)

	ev := feed(s, curls(rightArm, 1)...)
	ev |= feed(s, curls(leftArm, 1)...)
	if !ev.Has(SetCompleted | RestStarted) {
		t.Fatalf("events = %v, want set_completed and rest_started", ev.Names())
	}
	st := s.State()
	if !st.Resting || st.Phase != Resting {
		t.Fatalf("phase = %s, want resting", st.Phase)
	}
	if st.RightReps != 0 || st.LeftReps != 0 || st.CurrentArm != Right {
		t.Errorf("counters not reset for next set: %+v", st)
	}
	if st.Instruction != "Completed Set 1. Rest for 30 seconds." {
		t.Errorf("instruction = %q", st.Instruction)
	}

	// Reps during rest are ignored.
	clock.advance(10 * time.Second)
	feed(s, curls(rightArm, 2)...)
	if got := s.State().RightReps; got != 0 {
		t.Errorf("right reps during rest = %d, want 0", got)
	}

	clock.advance(19 * time.Second) // T+29
	s.Tick(pose.NoDetection())
	st = s.State()
	if !st.Resting {
		t.Fatal("rest ended before deadline")
	}
	if st.RestRemaining != 1 || st.PostureInstruction != "Rest: 1 seconds left" {
		t.Errorf("remaining = %d instruction = %q", st.RestRemaining, st.PostureInstruction)
	}

	clock.advance(2 * time.Second) // T+31
	ev = s.Tick(pose.NoDetection())
	st = s.State()
	if st.Resting || st.Phase != CountingRight || !ev.Has(RestEnded) {
		t.Fatalf("phase = %s events = %v, want counting_right after deadline", st.Phase, ev.Names())
	}
	if st.Instruction != "Start Set 2 with your right arm" {
		t.Errorf("instruction = %q", st.Instruction)
	}

	feed(s, curls(rightArm, 1)...)
	if got := s.State().RightReps; got != 1 {
		t.Errorf("right reps after rest = %d, want 1", got)
	}
}

// TestNoDetectionIsNoop verifies a frame without a pose leaves streaks,
// phases and counters untouched.
func TestNoDetectionIsNoop(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())
	feed(s, body(80, 170, 20), body(80, 170, 20), body(80, 170, 20))

	before := s.State()
	if before.PostureStreak != 3 || before.RepPhase != PhaseFlexed {
		t.Fatalf("setup: streak = %d phase = %s", before.PostureStreak, before.RepPhase)
	}
	s.Tick(pose.NoDetection())
	after := s.State()
	if after.PostureStreak != 3 || after.RepPhase != PhaseFlexed || after.RightReps != 0 {
		t.Errorf("state changed on no-detection frame: %+v", after)
	}
	if after.FramesNoPose != 1 {
		t.Errorf("frames without pose = %d, want 1", after.FramesNoPose)
	}
}

// TestInvisibleKeypointsNoop verifies zero-visibility keypoints never move
// the posture streak, the rep phase or the counters.
func TestInvisibleKeypointsNoop(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())
	s.Tick(rightArm(80))

	f := body(170, 170, 30)
	wrist := f.Landmarks[pose.RightWrist]
	wrist.Visibility = 0
	f.Landmarks[pose.RightWrist] = wrist
	nose := f.Landmarks[pose.Nose]
	nose.Visibility = 0
	f.Landmarks[pose.Nose] = nose

	s.Tick(f)
	st := s.State()
	if st.RightReps != 0 || st.RepPhase != PhaseFlexed || st.PostureStreak != 0 {
		t.Errorf("state changed by invisible keypoints: %+v", st)
	}
	if st.RightStatus != CueUnknown {
		t.Errorf("right status = %q, want unknown", st.RightStatus)
	}
}

// TestBadPostureFreezesCounting verifies reps are not credited while posture
// is flagged and resume after a compliant tick.
func TestBadPostureFreezesCounting(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())
	for range 6 {
		s.Tick(body(120, 170, 25))
	}
	if !s.State().IncorrectPosture {
		t.Fatal("posture not flagged after 6 deviating ticks")
	}
	feed(s, body(80, 170, 25), body(170, 170, 25))
	if got := s.State().RightReps; got != 0 {
		t.Errorf("reps counted with bad posture: %d", got)
	}

	feed(s, curls(rightArm, 1)...)
	st := s.State()
	if st.IncorrectPosture || st.RightReps != 1 {
		t.Errorf("incorrect = %v reps = %d, want false/1", st.IncorrectPosture, st.RightReps)
	}
}

// leaning tilts the torso of f by deg degrees off vertical by moving the hip.
func leaning(f pose.Frame, deg float64) pose.Frame {
	nose := f.Landmarks[pose.Nose]
	hip := f.Landmarks[pose.RightHip]
	hip.X = nose.X + (hip.Y-nose.Y)*math.Tan(deg*math.Pi/180)
	f.Landmarks[pose.RightHip] = hip
	return f
}

// TestTorsoLeanBlocksCounting verifies a leaning torso flags posture on the
// first tick and a full curl made while leaning is not counted.
func TestTorsoLeanBlocksCounting(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())

	s.Tick(leaning(rightArm(170), 20))
	st := s.State()
	if !st.IncorrectPosture || st.PostureInstruction != instrStandStraight {
		t.Fatalf("incorrect = %v instruction = %q, want true/%q", st.IncorrectPosture, st.PostureInstruction, instrStandStraight)
	}

	feed(s, leaning(rightArm(80), 20), leaning(rightArm(170), 20))
	if got := s.State().RightReps; got != 0 {
		t.Errorf("reps counted while leaning: %d", got)
	}

	feed(s, curls(rightArm, 1)...)
	if st := s.State(); st.IncorrectPosture || st.RightReps != 1 {
		t.Errorf("incorrect = %v reps = %d after standing straight, want false/1", st.IncorrectPosture, st.RightReps)
	}
}

func TestArmCues(t *testing.T) {
	s := newTestSession(t, DefaultConfig(), newClock())
	s.Tick(body(170, 100, 0))
	st := s.State()
	if st.RightStatus != CueFlex || st.LeftStatus != CueRelax {
		t.Errorf("cues = %q/%q, want flex/relax", st.RightStatus, st.LeftStatus)
	}
}

// TestStateIdempotent verifies State is a pure read even while resting.
func TestStateIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetReps = 1
	clock := newClock()
	s := newTestSession(t, cfg, clock)
	feed(s, curls(rightArm, 1)...)
	feed(s, curls(leftArm, 1)...)

	first := s.State()
	clock.advance(20 * time.Second)
	if second := s.State(); second != first {
		t.Errorf("State changed without a tick:\n first  %+v\n second %+v", first, second)
	}
}

func TestEventNames(t *testing.T) {
	ev := RepCounted | SetCompleted | WorkoutCompleted
	got := ev.Names()
	want := []string{"rep_counted", "set_completed", "workout_completed"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(Event(0).Names()) != 0 {
		t.Error("zero event has names")
	}
}
