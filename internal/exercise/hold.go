package exercise

import (
	"fmt"
	"time"
)

// Direction is the side a head is tilted toward.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLeft
	DirectionRight
)

func (d Direction) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*d = DirectionNone
	case "left":
		*d = DirectionLeft
	case "right":
		*d = DirectionRight
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Classify maps a signed angle to a direction. Angles whose magnitude does
// not exceed threshold fall in the dead-zone and classify as DirectionNone.
func Classify(angle, threshold float64) Direction {
	switch {
	case angle > threshold:
		return DirectionRight
	case angle < -threshold:
		return DirectionLeft
	default:
		return DirectionNone
	}
}

// Episode tracks one continuous hold on a single side.
// The zero value is the idle state.
type Episode struct {
	Direction   Direction `json:"direction"`
	Since       time.Time `json:"-"`
	HoldSeconds float64   `json:"hold_seconds"`
	Completed   bool      `json:"completed"`
}

// Active reports whether a hold is in progress.
func (e Episode) Active() bool {
	return e.Direction != DirectionNone
}

// Advance applies one frame's direction to the episode and reports whether
// this frame crossed the hold threshold. The crossing is reported once per
// episode; later frames of the same hold keep Completed latched.
func (e Episode) Advance(dir Direction, now time.Time, holdSeconds float64) (Episode, bool) {
	if dir == DirectionNone {
		return Episode{}, false
	}

	// A side change, even without a centred frame in between, starts over.
	if e.Direction != dir {
		return Episode{Direction: dir, Since: now}, false
	}

	elapsed := now.Sub(e.Since).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	e.HoldSeconds = elapsed

	if e.HoldSeconds >= holdSeconds && !e.Completed {
		e.Completed = true
		return e, true
	}
	return e, false
}
