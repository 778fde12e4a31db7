package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/necktilt/internal/exercise"
)

// Controller runs the camera and the exercise session.
type Controller interface {
	Snapshot() exercise.Feedback
	StartExercise() error
	StopExercise() error
	StartCamera() error
	StopCamera()
	CameraRunning() bool
}

type exerciseResponse struct {
	exercise.Feedback
	CameraRunning bool `json:"camera_running"`
}

// ExerciseHandler serves /api/exercise and /api/camera.
type ExerciseHandler struct {
	ctl           Controller
	cameraStopped error
}

// NewExerciseHandler creates a handler over ctl. cameraStopped is the error
// ctl returns when an exercise is started without a camera.
func NewExerciseHandler(ctl Controller, cameraStopped error) *ExerciseHandler {
	return &ExerciseHandler{ctl: ctl, cameraStopped: cameraStopped}
}

func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	switch path {
	case "/api/exercise":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.snapshot(w)
		return
	case "/api/exercise/start", "/api/exercise/stop", "/api/camera/start", "/api/camera/stop":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch path {
	case "/api/exercise/start":
		h.command(w, h.ctl.StartExercise())
	case "/api/exercise/stop":
		h.command(w, h.ctl.StopExercise())
	case "/api/camera/start":
		if err := h.ctl.StartCamera(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Failed to start camera: "+err.Error())
			return
		}
		h.snapshot(w)
	case "/api/camera/stop":
		h.ctl.StopCamera()
		h.snapshot(w)
	}
}

func (h *ExerciseHandler) command(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		h.snapshot(w)
	case h.cameraStopped != nil && errors.Is(err, h.cameraStopped):
		writeError(w, http.StatusConflict, "Start the camera first")
	case errors.Is(err, exercise.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *ExerciseHandler) snapshot(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, exerciseResponse{
		Feedback:      h.ctl.Snapshot(),
		CameraRunning: h.ctl.CameraRunning(),
	})
}
