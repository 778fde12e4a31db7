package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrEndOfStream is returned by a non-looping ReplayCamera once every frame
// has been read.
var ErrEndOfStream = errors.New("end of replay stream")

// ReplayCamera serves a fixed sequence of frames. It stands in for a webcam
// in tests and demos.
type ReplayCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	loop   bool
	open   bool
	fps    int
	reads  int
}

// NewReplayCamera creates a camera over frames. The frames stay owned by
// the caller; Read hands out clones.
func NewReplayCamera(frames []*gocv.Mat, loop bool) *ReplayCamera {
	return &ReplayCamera{frames: frames, loop: loop, fps: PreviewFPS}
}

func (c *ReplayCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

func (c *ReplayCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *ReplayCamera) Read() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return nil, ErrEmptyFrame
	}
	if c.next >= len(c.frames) {
		if !c.loop {
			return nil, ErrEndOfStream
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

func (c *ReplayCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *ReplayCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *ReplayCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads reports how many frames have been served.
func (c *ReplayCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
