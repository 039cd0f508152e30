// Package angle computes joint flexion and segment orientation angles from
// pose keypoints.
package angle

import (
	"math"

	"github.com/meltforce/curlcoach/internal/pose"
)

// Sample is an angle in degrees, or undefined when a contributing keypoint
// was not visible.
type Sample struct {
	Degrees float64
	OK      bool
}

// Undefined is the sample produced from missing or unreliable keypoints.
var Undefined = Sample{}

// Of wraps a measured value.
func Of(deg float64) Sample {
	return Sample{Degrees: deg, OK: true}
}

// Defined reports whether the sample carries a measurement.
func (s Sample) Defined() bool {
	return s.OK
}

// Joint returns the interior angle at vertex b between rays b→a and b→c,
// in [0,180], using the law of cosines.
func Joint(a, b, c pose.Keypoint) Sample {
	if !a.Visible() || !b.Visible() || !c.Visible() {
		return Undefined
	}
	ab := distance(a, b)
	bc := distance(b, c)
	ac := distance(a, c)
	if ab == 0 || bc == 0 {
		return Undefined
	}
	cos := (ab*ab + bc*bc - ac*ac) / (2 * ab * bc)
	// Rounding can push collinear points just outside acos's domain.
	cos = math.Max(-1, math.Min(1, cos))
	return Of(math.Acos(cos) * 180 / math.Pi)
}

// Segment returns the orientation of the segment a→b relative to the
// horizontal axis, in [0,180). Direction is ignored, so Segment(a, b) equals
// Segment(b, a). A vertical segment reads exactly 90.
func Segment(a, b pose.Keypoint) Sample {
	if !a.Visible() || !b.Visible() {
		return Undefined
	}
	if a.X == b.X {
		return Of(90)
	}
	deg := math.Atan((a.Y-b.Y)/(a.X-b.X)) * 180 / math.Pi
	return Of(math.Mod(180+deg, 180))
}

func distance(p, q pose.Keypoint) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}
