package exercise

import (
	"fmt"
	"image"
	"math"

	"github.com/ayusman/necktilt/internal/pose"
)

// Overlay sizes in pixels, independent of frame resolution.
const (
	RingRadiusPx  = 30
	LabelOffsetPx = 20
)

// Tone selects the colour of the angle line.
type Tone int

const (
	// ToneIdle is used while the head is inside the dead-zone.
	ToneIdle Tone = iota
	// ToneHolding is used while a tilt is held but not yet long enough.
	ToneHolding
	// ToneHeld is used once the tilt has been held past the threshold.
	ToneHeld
)

func (t Tone) String() string {
	switch t {
	case ToneHolding:
		return "holding"
	case ToneHeld:
		return "held"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tone) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tone) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*t = ToneIdle
	case "holding":
		*t = ToneHolding
	case "held":
		*t = ToneHeld
	default:
		return fmt.Errorf("unknown tone %q", text)
	}
	return nil
}

// Feedback is everything the display needs for one frame.
type Feedback struct {
	SessionID   string    `json:"session_id,omitempty"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	Instruction string    `json:"instruction"`
	Reps        int       `json:"reps"`
	Target      int       `json:"target"`
	Progress    float64   `json:"progress"`
	Direction   Direction `json:"direction"`
	HoldSeconds float64   `json:"hold_seconds"`
	Countdown   float64   `json:"countdown"`
	// Angle is the tilt magnitude in degrees.
	Angle     float64   `json:"angle"`
	Event     Event     `json:"event"`
	EventSide Direction `json:"event_side,omitempty"`
	// Completed is set on the frame whose rep finished the exercise.
	Completed bool     `json:"completed,omitempty"`
	Overlay   *Overlay `json:"overlay,omitempty"`
}

// Events lists the frame's events in the order they happened.
func (f Feedback) Events() []Event {
	var events []Event
	if f.Event != EventNone {
		events = append(events, f.Event)
	}
	if f.Completed {
		events = append(events, EventExerciseComplete)
	}
	return events
}

// Line is a segment in normalized frame coordinates.
type Line struct {
	From pose.Point `json:"from"`
	To   pose.Point `json:"to"`
}

// Ring is the circular hold-progress indicator.
type Ring struct {
	Center   pose.Point `json:"center"`
	RadiusPx int        `json:"radius_px"`
	Fraction float64    `json:"fraction"`
}

// Overlay is the geometry drawn over the video, in normalized coordinates.
type Overlay struct {
	Reference   Line       `json:"reference"`
	AngleLine   Line       `json:"angle_line"`
	Tone        Tone       `json:"tone"`
	Label       string     `json:"label"`
	LabelAnchor pose.Point `json:"label_anchor"`
	Ring        *Ring      `json:"ring,omitempty"`
}

// PixelOverlay is an Overlay scaled to a frame size.
type PixelOverlay struct {
	Reference  [2]image.Point
	AngleLine  [2]image.Point
	Tone       Tone
	Label      string
	LabelAt    image.Point
	Ring       bool
	RingCenter image.Point
	RingRadius int
	RingArc    float64
}

// Scale converts the overlay to pixel coordinates for a width x height frame.
func (o Overlay) Scale(width, height int) PixelOverlay {
	px := func(p pose.Point) image.Point {
		return image.Point{
			X: int(math.Round(p.X * float64(width))),
			Y: int(math.Round(p.Y * float64(height))),
		}
	}

	label := px(o.LabelAnchor)
	label.Y -= LabelOffsetPx

	out := PixelOverlay{
		Reference: [2]image.Point{px(o.Reference.From), px(o.Reference.To)},
		AngleLine: [2]image.Point{px(o.AngleLine.From), px(o.AngleLine.To)},
		Tone:      o.Tone,
		Label:     o.Label,
		LabelAt:   label,
	}
	if o.Ring != nil {
		out.Ring = true
		out.RingCenter = px(o.Ring.Center)
		out.RingRadius = o.Ring.RadiusPx
		out.RingArc = o.Ring.Fraction
	}
	return out
}

// Project derives the user-facing feedback from a state. It only reads st.
func Project(st State) Feedback {
	cfg := st.Config
	ep := st.Episode

	fb := Feedback{
		SessionID:   st.SessionID,
		Status:      st.Status,
		Message:     st.Message,
		Instruction: instruction(st),
		Reps:        st.Counter.Reps,
		Target:      st.Counter.Target,
		Progress:    st.Counter.Progress(),
		Direction:   ep.Direction,
		HoldSeconds: ep.HoldSeconds,
		Countdown:   math.Max(0, cfg.HoldSeconds-ep.HoldSeconds),
		Angle:       math.Abs(st.Measurement.Angle),
	}
	if st.Status == StatusComplete {
		fb.Countdown = 0
	}

	if st.Status != StatusStopped && st.Measured && st.Signal {
		fb.Overlay = overlay(st)
	}
	return fb
}

// InstructionComplete replaces the hold prompts once every rep is done.
const InstructionComplete = "All reps done. Press Start to go again."

func instruction(st State) string {
	cfg := st.Config
	ep := st.Episode

	switch {
	case st.Status == StatusStopped:
		return "This application will guide you through neck tilt exercises."
	case st.Status == StatusComplete:
		return InstructionComplete
	case !st.Measured && st.Counter.Reps == 0:
		return fmt.Sprintf("Tilt your head to either side until you reach %g° and hold for %g seconds. Complete %d reps on each side.",
			cfg.AngleThreshold, cfg.HoldSeconds, cfg.TargetRepsPerSide)
	case ep.Completed:
		return "Return to center, then tilt to the other side."
	case ep.Direction == DirectionNone:
		return fmt.Sprintf("Tilt your head to either side until you reach %g° and hold for %g seconds.",
			cfg.AngleThreshold, cfg.HoldSeconds)
	default:
		remaining := math.Max(0, cfg.HoldSeconds-ep.HoldSeconds)
		return fmt.Sprintf("Good! Hold your %s tilt for %.1f more seconds.", ep.Direction, remaining)
	}
}

func overlay(st State) *Overlay {
	m := st.Measurement
	ep := st.Episode
	cfg := st.Config

	o := &Overlay{
		Reference: Line{
			From: pose.Point{X: m.ShoulderMid.X, Y: 0},
			To:   pose.Point{X: m.ShoulderMid.X, Y: 1},
		},
		AngleLine:   Line{From: m.ShoulderMid, To: m.Nose},
		Tone:        ToneIdle,
		Label:       fmt.Sprintf("%.1f°", math.Abs(m.Angle)),
		LabelAnchor: m.Nose,
	}
	if st.Status == StatusComplete {
		return o
	}

	o.Tone = tone(m.Angle, ep, cfg)
	if ep.Direction != DirectionNone {
		o.Ring = &Ring{
			Center:   pose.Lerp(m.ShoulderMid, m.Nose, 0.5),
			RadiusPx: RingRadiusPx,
			Fraction: clamp01(ep.HoldSeconds / cfg.HoldSeconds),
		}
	}
	return o
}

func tone(angle float64, ep Episode, cfg Config) Tone {
	switch {
	case ep.Direction == DirectionNone:
		return ToneIdle
	case math.Abs(angle) > cfg.AngleThreshold && ep.HoldSeconds >= cfg.HoldSeconds:
		return ToneHeld
	default:
		return ToneHolding
	}
}
