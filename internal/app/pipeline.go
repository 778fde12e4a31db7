package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/necktilt/internal/capture"
	"github.com/ayusman/necktilt/internal/overlay"
)

// runPipeline reads frames until stop is closed.
//
// While no exercise is running the camera previews and the motion detector
// picks between the idle and preview rates. Once a session starts, every
// frame goes through pose detection and the session, and the feedback is
// drawn onto the frame before it is published to the stream.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	a.mu.RLock()
	cam := a.camera
	a.mu.RUnlock()

	fps := cam.FPS()
	ticker := time.NewTicker(frameInterval(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			next := a.processFrame(cam, fps)
			if next != fps {
				a.log.WithField("fps", next).Debug("Capture rate changed")
				fps = next
				cam.SetFPS(fps)
				ticker.Reset(frameInterval(fps))
			}
		}
	}
}

// processFrame handles one tick and returns the capture rate for the next.
func (a *App) processFrame(cam capture.Camera, fps int) int {
	frame, err := cam.Read()
	if err != nil {
		a.log.WithError(err).Debug("Error reading frame")
		return fps
	}
	defer frame.Close()

	if a.tracking() {
		a.motion.Reset()
		a.track(frame)
		a.encode(frame)
		return capture.ExerciseFPS
	}

	next := capture.PreviewRate(a.motion.Detect(frame))
	a.encode(frame)
	return next
}

func (a *App) track(frame *gocv.Mat) {
	det := a.Detector()
	if det == nil {
		return
	}

	start := time.Now()
	points, err := det.Detect(frame)
	a.metrics.ObserveDetect(time.Since(start), err)
	if err != nil {
		a.log.WithError(err).Warn("Pose detection failed")
		return
	}

	a.mu.RLock()
	now := a.now()
	a.mu.RUnlock()

	fb := a.ProcessKeypoints(points, now)
	overlay.Draw(frame, fb)
}

func (a *App) encode(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.log.WithError(err).Debug("Error encoding frame")
		return
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	a.storeFrame(jpeg)
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.PreviewFPS
	}
	return time.Second / time.Duration(fps)
}
