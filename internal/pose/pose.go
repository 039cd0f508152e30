// Package pose defines the per-frame body keypoints produced by an external
// pose estimator (MediaPipe naming).
package pose

import (
	"fmt"
	"time"
)

// Landmark names a body keypoint.
type Landmark string

const (
	Nose          Landmark = "NOSE"
	LeftShoulder  Landmark = "LEFT_SHOULDER"
	RightShoulder Landmark = "RIGHT_SHOULDER"
	LeftElbow     Landmark = "LEFT_ELBOW"
	RightElbow    Landmark = "RIGHT_ELBOW"
	LeftWrist     Landmark = "LEFT_WRIST"
	RightWrist    Landmark = "RIGHT_WRIST"
	RightHip      Landmark = "RIGHT_HIP"
)

// Landmarks lists every landmark the tracker reads.
var Landmarks = []Landmark{
	Nose, LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist, RightHip,
}

// Valid reports whether l is one of the known landmarks.
func (l Landmark) Valid() bool {
	for _, known := range Landmarks {
		if l == known {
			return true
		}
	}
	return false
}

// Keypoint is a 2D landmark position with the estimator's visibility score.
// Visibility 0 means not detected.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

// Visible reports whether the keypoint can be used for geometry.
func (k Keypoint) Visible() bool {
	return k.Visibility > 0
}

// Frame is one estimator result. Detected=false is the "no landmarks" signal
// for the whole frame.
type Frame struct {
	Detected   bool                  `json:"detected"`
	Landmarks  map[Landmark]Keypoint `json:"landmarks,omitempty"`
	CapturedAt time.Time             `json:"captured_at,omitzero"`
}

// NoDetection returns a frame carrying no pose.
func NoDetection() Frame {
	return Frame{}
}

// HasPose reports whether the frame carries any usable landmarks.
func (f Frame) HasPose() bool {
	return f.Detected && len(f.Landmarks) > 0
}

// Point returns the keypoint for l. A missing landmark reads as invisible.
func (f Frame) Point(l Landmark) Keypoint {
	return f.Landmarks[l]
}

// Validate rejects unknown landmark names and out-of-range visibility scores.
func (f Frame) Validate() error {
	for l, k := range f.Landmarks {
		if !l.Valid() {
			return fmt.Errorf("unknown landmark %q", l)
		}
		if k.Visibility < 0 || k.Visibility > 1 {
			return fmt.Errorf("landmark %s: visibility %v outside [0,1]", l, k.Visibility)
		}
	}
	return nil
}
