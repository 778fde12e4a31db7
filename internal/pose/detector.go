package pose

import "gocv.io/x/gocv"

// Detector defines the interface for body pose detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// prominent person, indexed by the MediaPipe Pose scheme.
	// Returns nil if nobody is detected.
	Detect(frame *gocv.Mat) ([]Keypoint, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the pose model.
type Config struct {
	// ModelComplexity selects the MediaPipe pose model (0, 1 or 2).
	ModelComplexity int

	// SmoothLandmarks enables the model's temporal landmark filter.
	SmoothLandmarks bool

	// MinDetectionConf is the minimum person detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum landmark tracking confidence (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:  1,
		SmoothLandmarks:  true,
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
	}
}
