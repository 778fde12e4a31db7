package app

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/necktilt/internal/capture"
	"github.com/ayusman/necktilt/internal/logging"
	"github.com/ayusman/necktilt/internal/metrics"
	"github.com/ayusman/necktilt/internal/pose"
	"github.com/ayusman/necktilt/internal/store"
)

// stubCamera opens without hardware and never yields a frame.
type stubCamera struct {
	mu   sync.Mutex
	open bool
	fps  int
}

func (c *stubCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	return nil
}

func (c *stubCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *stubCamera) Read() (*gocv.Mat, error) { return nil, errors.New("no frames") }

func (c *stubCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *stubCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fps == 0 {
		return capture.PreviewFPS
	}
	return c.fps
}

func (c *stubCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, s *store.Store) (*App, *stubCamera) {
	t.Helper()
	a := New(Config{
		Store:     s,
		PluginDir: t.TempDir(),
		Logger:    logging.Discard(),
		Metrics:   metrics.New(),
	})
	cam := &stubCamera{}
	a.SetCamera(cam)
	a.SetDetector(pose.NewMockDetector())
	t.Cleanup(a.Close)
	return a, cam
}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func sec(s float64) time.Time {
	return t0.Add(time.Duration(s * float64(time.Second)))
}

// hold feeds a tilt at the given offsets starting from start seconds.
func hold(a *App, angle, start float64) {
	for _, off := range []float64{0, 1, 2, 3} {
		a.ProcessKeypoints(pose.TiltedPose(angle, 0.95), sec(start+off))
	}
}
