package capture

import (
	"errors"
	"testing"
)

func TestNewCamera_Defaults(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantFPS int
	}{
		{"default config", DefaultConfig(0), PreviewFPS},
		{"zero fps falls back to preview", Config{DeviceID: 1}, PreviewFPS},
		{"explicit fps", Config{DeviceID: 2, FPS: ExerciseFPS}, ExerciseFPS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
			if cam.IsOpen() {
				t.Error("camera should not be open before Open()")
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig(0))

	steps := []struct {
		fps  int
		want int
	}{
		{ExerciseFPS, ExerciseFPS},
		{IdleFPS, IdleFPS},
		{0, IdleFPS},
		{-5, IdleFPS},
	}

	for _, s := range steps {
		cam.SetFPS(s.fps)
		if got := cam.FPS(); got != s.want {
			t.Errorf("SetFPS(%d): FPS() = %d, want %d", s.fps, got, s.want)
		}
	}
}

func TestCamera_ReadNotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig(0))

	_, err := cam.Read()
	if !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("Read() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestCamera_CloseNotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig(0))

	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera = %v, want nil", err)
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig(0))
	if err := cam.Open(); err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	mat, err := cam.Read()
	if err != nil {
		t.Errorf("Read() failed: %v", err)
	} else {
		size := FrameSize(mat)
		t.Logf("frame size %dx%d", size.X, size.Y)
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should be false after Close()")
	}
}
