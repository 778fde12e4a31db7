package server

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/exercise"
	"github.com/ayusman/necktilt/internal/pose"
	"github.com/ayusman/necktilt/internal/store"
)

var errNoCamera = errors.New("camera is not running")

// fakeApp drives a real session without a camera or pipeline.
type fakeApp struct {
	mu      sync.Mutex
	session *exercise.Session
	camera  bool
	frame   []byte
	seq     uint64
	subs    map[chan exercise.Feedback]struct{}
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		session: exercise.NewSession(exercise.DefaultConfig()),
		subs:    make(map[chan exercise.Feedback]struct{}),
	}
}

func (f *fakeApp) Snapshot() exercise.Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Feedback()
}

func (f *fakeApp) StartExercise() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.camera {
		return errNoCamera
	}
	return f.session.Start()
}

func (f *fakeApp) StopExercise() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Stop()
}

func (f *fakeApp) StartCamera() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camera = true
	return nil
}

func (f *fakeApp) StopCamera() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.camera = false
}

func (f *fakeApp) CameraRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.camera
}

func (f *fakeApp) ExerciseConfig() exercise.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session.Config()
}

func (f *fakeApp) UpdateExerciseConfig(cfg exercise.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session.SetConfig(cfg)
	return nil
}

func (f *fakeApp) LatestFrame() ([]byte, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.seq
}

func (f *fakeApp) setFrame(jpeg []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = jpeg
	f.seq++
}

func (f *fakeApp) Subscribe() (<-chan exercise.Feedback, func()) {
	ch := make(chan exercise.Feedback, 8)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *fakeApp) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// process feeds one sample through the session and publishes the result.
func (f *fakeApp) process(sample pose.Sample, now time.Time) exercise.Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb := f.session.ProcessFrame(sample, now)
	for ch := range f.subs {
		select {
		case ch <- fb:
		default:
		}
	}
	return fb
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tilted builds a confident sample with the head tilted by angle degrees.
func tilted(angle float64) pose.Sample {
	return pose.Extract(pose.TiltedPose(angle, 0.95), pose.DefaultMinConf)
}
