// Package exercise implements the neck tilt exercise: tilt measurement,
// hold tracking, rep counting, session lifecycle and the feedback shown to
// the user. Everything here is synchronous and free of I/O; callers feed it
// one pose sample at a time.
package exercise

// Config holds the exercise thresholds.
type Config struct {
	// AngleThreshold is the dead-zone half width in degrees. A tilt must
	// exceed it to count as left or right.
	AngleThreshold float64 `json:"angle_threshold" validate:"gt=0,lt=90"`

	// HoldSeconds is how long a tilt must be held for a rep.
	HoldSeconds float64 `json:"hold_seconds" validate:"gt=0,lte=60"`

	// TargetRepsPerSide is the number of reps expected on each side.
	TargetRepsPerSide int `json:"target_reps_per_side" validate:"gte=1,lte=50"`

	// MinConfidence is the visibility floor every tracked keypoint must exceed.
	MinConfidence float64 `json:"min_confidence" validate:"gte=0,lt=1"`
}

// DefaultConfig returns the standard exercise: 15 degrees, 3 seconds,
// 5 reps per side, 0.7 confidence.
func DefaultConfig() Config {
	return Config{
		AngleThreshold:    15,
		HoldSeconds:       3,
		TargetRepsPerSide: 5,
		MinConfidence:     0.7,
	}
}

// TargetTotal is the combined rep goal across both sides.
func (c Config) TargetTotal() int {
	return c.TargetRepsPerSide * 2
}
