package exercise

// Counter tallies completed holds against the session goal. Reps are
// combined across sides; alternation is left to the user.
type Counter struct {
	Reps   int `json:"reps"`
	Target int `json:"target"`
}

// NewCounter returns an empty counter for the given per-side target.
func NewCounter(perSide int) Counter {
	return Counter{Target: perSide * 2}
}

// Done reports whether the goal has been reached.
func (c Counter) Done() bool {
	return c.Reps >= c.Target
}

// Record counts one rep unless the goal is already met.
func (c Counter) Record() (Counter, bool) {
	if c.Done() {
		return c, false
	}
	c.Reps++
	return c, true
}

// Progress returns reps over target, clamped to [0,1].
func (c Counter) Progress() float64 {
	if c.Target <= 0 {
		return 0
	}
	return clamp01(float64(c.Reps) / float64(c.Target))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
