// Package pose provides body-pose keypoint types and detectors for the neck tilt tracker.
package pose

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
// Only the upper body is named; the remaining indices cover hips and legs.
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	NumLandmarks   = 33
	DefaultMinConf = 0.7
)

// Keypoint is a single landmark in normalized frame coordinates.
// X and Y are in [0,1] relative to the frame; Visibility is the detector's
// confidence that the point is present and unoccluded.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Point is a 2D point in normalized frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point returns the keypoint projected onto the image plane.
func (k Keypoint) Point() Point {
	return Point{X: k.X, Y: k.Y}
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Lerp returns the point at fraction t along the segment from a to b.
func Lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// Sample holds the five keypoints the tilt tracker reads from a frame.
type Sample struct {
	Nose          Keypoint `json:"nose"`
	LeftEar       Keypoint `json:"left_ear"`
	RightEar      Keypoint `json:"right_ear"`
	LeftShoulder  Keypoint `json:"left_shoulder"`
	RightShoulder Keypoint `json:"right_shoulder"`
	Valid         bool     `json:"valid"`
}

// Extract pulls the tracked keypoints out of a full landmark list.
// The sample is valid only when every tracked point is present and its
// visibility is strictly greater than minConfidence.
func Extract(points []Keypoint, minConfidence float64) Sample {
	if len(points) <= RightShoulder {
		return Sample{}
	}

	s := Sample{
		Nose:          points[Nose],
		LeftEar:       points[LeftEar],
		RightEar:      points[RightEar],
		LeftShoulder:  points[LeftShoulder],
		RightShoulder: points[RightShoulder],
	}
	s.Valid = s.MinVisibility() > minConfidence
	return s
}

// MinVisibility returns the lowest visibility across the tracked keypoints.
func (s Sample) MinVisibility() float64 {
	lowest := s.Nose.Visibility
	for _, k := range []Keypoint{s.LeftEar, s.RightEar, s.LeftShoulder, s.RightShoulder} {
		if k.Visibility < lowest {
			lowest = k.Visibility
		}
	}
	return lowest
}

// ShoulderMidpoint returns the midpoint of the two shoulders.
func (s Sample) ShoulderMidpoint() Point {
	return Midpoint(s.LeftShoulder.Point(), s.RightShoulder.Point())
}
