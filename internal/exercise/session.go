package exercise

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/necktilt/internal/pose"
)

// ErrInvalidTransition is returned when a lifecycle command does not apply
// to the session's current status.
var ErrInvalidTransition = errors.New("invalid session transition")

// Status is the session lifecycle state.
type Status int

const (
	StatusStopped Status = iota
	StatusActive
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	default:
		return "stopped"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stopped":
		*s = StatusStopped
	case "active":
		*s = StatusActive
	case "complete":
		*s = StatusComplete
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Event marks what happened on a processed frame.
type Event int

const (
	EventNone Event = iota
	EventRepCompleted
	EventExerciseComplete
)

func (e Event) String() string {
	switch e {
	case EventRepCompleted:
		return "rep_completed"
	case EventExerciseComplete:
		return "exercise_complete"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e Event) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Event) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*e = EventNone
	case "rep_completed":
		*e = EventRepCompleted
	case "exercise_complete":
		*e = EventExerciseComplete
	default:
		return fmt.Errorf("unknown event %q", text)
	}
	return nil
}

// Status lines shown to the user.
const (
	MessageIdle       = "Press Start to begin the exercise."
	MessageStarted    = "Exercise started. Tilt your neck to the left or right."
	MessageStopped    = "Exercise stopped."
	MessageComplete   = "Exercise complete! Great job!"
	MessageReposition = "Please position yourself so your face and shoulders are clearly visible."
)

// State is the full exercise state. It is a plain value: Step returns an
// updated copy and never retains the caller's sample.
type State struct {
	SessionID   string      `json:"session_id,omitempty"`
	Status      Status      `json:"status"`
	Config      Config      `json:"config"`
	Counter     Counter     `json:"counter"`
	Episode     Episode     `json:"episode"`
	Measurement Measurement `json:"measurement"`
	// Measured is false until the first valid sample of the session.
	Measured bool `json:"measured"`
	// Signal is false when the latest frame lacked usable keypoints.
	Signal  bool   `json:"signal"`
	Message string `json:"message"`
}

// NewState returns a stopped state using cfg.
func NewState(cfg Config) State {
	return State{
		Config:  cfg,
		Counter: NewCounter(cfg.TargetRepsPerSide),
		Message: MessageIdle,
	}
}

// Step advances the state by one frame.
//
// Stopped sessions ignore frames. A sample that failed the confidence floor
// changes only the status line; the hold episode and reps are left as they
// were. Complete sessions keep measuring for the angle readout but never
// count. The final rep reports EventRepCompleted with Completed set.
func Step(st State, sample pose.Sample, now time.Time) (State, Feedback) {
	if st.Status == StatusStopped {
		return st, Project(st)
	}

	if !sample.Valid {
		st.Signal = false
		if st.Status == StatusActive {
			st.Message = MessageReposition
		}
		return st, Project(st)
	}

	st.Signal = true
	st.Measured = true
	st.Measurement = Measure(sample)

	dir := Classify(st.Measurement.Angle, st.Config.AngleThreshold)
	episode, reached := st.Episode.Advance(dir, now, st.Config.HoldSeconds)
	st.Episode = episode

	event := EventNone
	completed := false
	if reached && st.Status == StatusActive {
		if counter, counted := st.Counter.Record(); counted {
			st.Counter = counter
			event = EventRepCompleted
			st.Message = fmt.Sprintf("Good! %s tilt completed. %d/%d reps done.",
				dir, counter.Reps, counter.Target)

			if counter.Done() {
				st.Status = StatusComplete
				st.Message = MessageComplete
				completed = true
			}
		}
	}

	fb := Project(st)
	fb.Event = event
	fb.Completed = completed
	if event != EventNone {
		fb.EventSide = dir
	}
	return st, fb
}

// Session owns the exercise state for a single user. It is not safe for
// concurrent use; callers serialise access.
type Session struct {
	state   State
	pending *Config
}

// NewSession creates a stopped session.
func NewSession(cfg Config) *Session {
	return &Session{state: NewState(cfg)}
}

// Start begins a fresh session, discarding reps and any hold in progress.
// It applies a configuration queued by SetConfig.
func (s *Session) Start() error {
	if s.state.Status == StatusActive {
		return fmt.Errorf("start %s session: %w", s.state.Status, ErrInvalidTransition)
	}

	cfg := s.state.Config
	if s.pending != nil {
		cfg = *s.pending
		s.pending = nil
	}

	s.state = NewState(cfg)
	s.state.SessionID = uuid.NewString()
	s.state.Status = StatusActive
	s.state.Message = MessageStarted
	return nil
}

// Stop halts frame processing. Reps stay visible until the next Start.
func (s *Session) Stop() error {
	if s.state.Status == StatusStopped {
		return fmt.Errorf("stop %s session: %w", s.state.Status, ErrInvalidTransition)
	}

	s.state.Status = StatusStopped
	s.state.Message = MessageStopped
	return nil
}

// SetConfig replaces the thresholds. A stopped session adopts them at once;
// otherwise they take effect on the next Start.
func (s *Session) SetConfig(cfg Config) {
	if s.state.Status == StatusStopped {
		s.state.Config = cfg
		s.state.Counter.Target = cfg.TargetTotal()
		s.pending = nil
		return
	}
	s.pending = &cfg
}

// Config returns the thresholds the next Start will use.
func (s *Session) Config() Config {
	if s.pending != nil {
		return *s.pending
	}
	return s.state.Config
}

// ProcessFrame feeds one sample through the state machine.
func (s *Session) ProcessFrame(sample pose.Sample, now time.Time) Feedback {
	var fb Feedback
	s.state, fb = Step(s.state, sample, now)
	return fb
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state
}

// Feedback projects the current state without processing a frame.
func (s *Session) Feedback() Feedback {
	return Project(s.state)
}
