package pose

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	points []Keypoint
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetKeypoints sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetKeypoints(points []Keypoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = points
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Keypoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.points, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Preset geometry shared by the pose builders.
const (
	presetShoulderY     = 0.45
	presetShoulderLeftX = 0.60
	presetShoulderRight = 0.40
	presetNeckLength    = 0.2
	presetEarSpread     = 0.05
)

// TiltedPose returns a full landmark list whose nose sits at the given tilt
// angle (degrees, right positive) from the shoulder midpoint, with every
// tracked point at the given visibility.
//
// The nose is placed by inverting the tilt formula angle = -atan2(dx, dy),
// so Measure on the returned sample reproduces angle.
func TiltedPose(angle, visibility float64) []Keypoint {
	points := make([]Keypoint, NumLandmarks)

	mid := Point{X: (presetShoulderLeftX + presetShoulderRight) / 2, Y: presetShoulderY}
	rad := angle * math.Pi / 180
	nose := Point{
		X: mid.X - presetNeckLength*math.Sin(rad),
		Y: mid.Y + presetNeckLength*math.Cos(rad),
	}

	points[Nose] = Keypoint{X: nose.X, Y: nose.Y, Visibility: visibility}
	points[LeftEar] = Keypoint{X: nose.X + presetEarSpread, Y: nose.Y, Visibility: visibility}
	points[RightEar] = Keypoint{X: nose.X - presetEarSpread, Y: nose.Y, Visibility: visibility}
	points[LeftShoulder] = Keypoint{X: presetShoulderLeftX, Y: presetShoulderY, Visibility: visibility}
	points[RightShoulder] = Keypoint{X: presetShoulderRight, Y: presetShoulderY, Visibility: visibility}

	return points
}

// OccludedPose returns a tilted pose whose left ear falls below any sensible
// confidence floor, as when a hand or hair covers it.
func OccludedPose(angle float64) []Keypoint {
	points := TiltedPose(angle, 0.95)
	points[LeftEar].Visibility = 0.2
	return points
}
