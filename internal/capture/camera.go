// Package capture reads webcam frames with GoCV and decides how often to
// read them.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Capture rates. The camera idles slowly until something moves in front of
// it and runs fastest while an exercise is being tracked.
const (
	IdleFPS     = 2
	PreviewFPS  = 10
	ExerciseFPS = 15
)

// Default capture resolution.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device hands back no pixels.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Config describes the capture device.
type Config struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
}

// DefaultConfig returns a 640x480 preview configuration for device.
func DefaultConfig(device int) Config {
	return Config{
		DeviceID: device,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      PreviewFPS,
	}
}

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// Read returns the next frame. The caller must Close it.
	Read() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type webcam struct {
	config Config

	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// NewCamera returns a webcam that is opened lazily by Open.
func NewCamera(config Config) Camera {
	if config.FPS <= 0 {
		config.FPS = PreviewFPS
	}
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = DefaultWidth, DefaultHeight
	}
	return &webcam{config: config}
}

func (c *webcam) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", c.config.DeviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.config.FPS))

	c.capture = vc
	return nil
}

func (c *webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *webcam) Read() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read camera %d: device returned no frame", c.config.DeviceID)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return &mat, nil
}

// SetFPS ignores non-positive rates.
func (c *webcam) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.config.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *webcam) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.FPS
}

func (c *webcam) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}

// FrameSize returns the width and height of a frame.
func FrameSize(m *gocv.Mat) image.Point {
	if m == nil {
		return image.Point{}
	}
	return image.Point{X: m.Cols(), Y: m.Rows()}
}
