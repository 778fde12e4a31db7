package app

import (
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/necktilt/internal/capture"
	"github.com/ayusman/necktilt/internal/exercise"
	"github.com/ayusman/necktilt/internal/logging"
	"github.com/ayusman/necktilt/internal/pose"
)

func TestFrameInterval(t *testing.T) {
	tests := []struct {
		fps  int
		want time.Duration
	}{
		{capture.ExerciseFPS, time.Second / 15},
		{capture.IdleFPS, 500 * time.Millisecond},
		{0, time.Second / capture.PreviewFPS},
	}
	for _, tt := range tests {
		if got := frameInterval(tt.fps); got != tt.want {
			t.Errorf("frameInterval(%d) = %v, want %v", tt.fps, got, tt.want)
		}
	}
}

func TestApp_Pipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	a := New(Config{PluginDir: t.TempDir(), Logger: logging.Discard()})
	defer a.Close()
	a.SetCamera(capture.NewReplayCamera([]*gocv.Mat{&frame}, true))

	det := pose.NewMockDetector()
	det.SetKeypoints(pose.TiltedPose(25, 0.95))
	a.SetDetector(det)

	// Each tracked frame advances the clock by one second.
	var mu sync.Mutex
	tick := 0
	a.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return t0.Add(time.Duration(tick) * time.Second)
	})

	if err := a.StartCamera(); err != nil {
		t.Fatalf("StartCamera() error = %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, seq := a.LatestFrame(); seq > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no preview frame encoded")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if det.Calls() != 0 {
		t.Errorf("detector ran %d times before the exercise started", det.Calls())
	}

	if err := a.StartExercise(); err != nil {
		t.Fatalf("StartExercise() error = %v", err)
	}

	deadline = time.Now().Add(5 * time.Second)
	for a.Snapshot().Reps < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("no rep counted, snapshot = %+v", a.Snapshot())
		}
		time.Sleep(20 * time.Millisecond)
	}

	snap := a.Snapshot()
	if snap.Overlay == nil || snap.Direction != exercise.DirectionRight {
		t.Errorf("expected a right tilt overlay, got %+v", snap)
	}
	jpeg, _ := a.LatestFrame()
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Error("latest frame is not a JPEG")
	}
}
