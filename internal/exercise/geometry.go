package exercise

import (
	"math"

	"github.com/ayusman/necktilt/internal/pose"
)

// Measurement is the tilt derived from one valid pose sample.
type Measurement struct {
	// Angle is the signed tilt in degrees; positive is a right tilt.
	Angle       float64    `json:"angle"`
	ShoulderMid pose.Point `json:"shoulder_mid"`
	Nose        pose.Point `json:"nose"`
}

// Measure computes the tilt of the nose around the shoulder midpoint.
//
// The angle is -atan2(dx, dy) in degrees, where (dx, dy) runs from the
// shoulder midpoint to the nose in image coordinates. No smoothing is applied.
func Measure(s pose.Sample) Measurement {
	mid := s.ShoulderMidpoint()
	nose := s.Nose.Point()

	dx := nose.X - mid.X
	dy := nose.Y - mid.Y

	return Measurement{
		Angle:       -math.Atan2(dx, dy) * 180 / math.Pi,
		ShoulderMid: mid,
		Nose:        nose,
	}
}
