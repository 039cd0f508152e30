package replay

import (
	"time"

	"github.com/meltforce/curlcoach/internal/tracker"
)

// Transition records a tick that produced events.
type Transition struct {
	Line   int              `json:"line"`
	At     time.Time        `json:"at"`
	Events []string         `json:"events"`
	State  tracker.Snapshot `json:"state"`
}

// Result is the outcome of a replay.
type Result struct {
	Final       tracker.Snapshot `json:"final"`
	Transitions []Transition     `json:"transitions"`
}

// Run replays lines through a fresh session whose clock is the trace
// timestamps, so rest periods elapse exactly as recorded.
func Run(lines []Line, cfg tracker.Config) (Result, error) {
	var now time.Time
	if len(lines) > 0 {
		now = lines[0].T
	}
	sess, err := tracker.NewSession(cfg, tracker.WithClock(func() time.Time { return now }))
	if err != nil {
		return Result{}, err
	}

	res := Result{Transitions: []Transition{}}
	for i, l := range lines {
		now = l.T
		if ev := sess.Tick(l.Frame); ev != 0 {
			res.Transitions = append(res.Transitions, Transition{
				Line:   i + 1,
				At:     l.T,
				Events: ev.Names(),
				State:  sess.State(),
			})
		}
	}
	res.Final = sess.State()
	return res, nil
}
