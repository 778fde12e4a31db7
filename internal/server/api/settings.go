package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/ayusman/necktilt/internal/exercise"
)

// SettingsController reads and updates the exercise thresholds.
type SettingsController interface {
	ExerciseConfig() exercise.Config
	UpdateExerciseConfig(cfg exercise.Config) error
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	ctl      SettingsController
	validate *validator.Validate
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(ctl SettingsController) *SettingsHandler {
	return &SettingsHandler{ctl: ctl, validate: newValidator()}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctl.ExerciseConfig())
	case http.MethodPut:
		h.update(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// update applies a partial update on top of the current settings.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	cfg := h.ctl.ExerciseConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, validationMessage(verrs))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ctl.UpdateExerciseConfig(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, h.ctl.ExerciseConfig())
}
