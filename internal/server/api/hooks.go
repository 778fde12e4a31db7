package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ayusman/necktilt/internal/plugin"
	"github.com/ayusman/necktilt/internal/store"
)

// PluginLookup resolves plugin names. *plugin.Manager satisfies it.
type PluginLookup interface {
	Get(name string) (*plugin.Plugin, error)
}

// HookHandler handles HTTP requests for hook resources.
type HookHandler struct {
	store    *store.Store
	plugins  PluginLookup
	validate *validator.Validate
}

// NewHookHandler creates a HookHandler. plugins may be nil, in which case
// plugin names are not checked.
func NewHookHandler(s *store.Store, plugins PluginLookup) *HookHandler {
	return &HookHandler{store: s, plugins: plugins, validate: newValidator()}
}

// ServeHTTP routes /api/hooks and /api/hooks/{id}.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/hooks"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type hookRequest struct {
	Event      string          `json:"event" validate:"required,oneof=rep_completed exercise_complete"`
	PluginName string          `json:"plugin_name" validate:"required,max=64"`
	ActionName string          `json:"action_name" validate:"required,max=64"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type hookResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

func toHookResponse(hk *store.Hook) hookResponse {
	config := hk.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return hookResponse{
		ID:         hk.ID,
		Event:      hk.Event,
		PluginName: hk.PluginName,
		ActionName: hk.ActionName,
		Config:     config,
		Enabled:    hk.Enabled,
		CreatedAt:  hk.CreatedAt.Format(time.RFC3339),
	}
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks, err := h.store.Hooks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hooks")
		return
	}

	resp := listHooksResponse{Hooks: make([]hookResponse, 0, len(hooks))}
	for _, hk := range hooks {
		resp.Hooks = append(resp.Hooks, toHookResponse(hk))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HookHandler) get(w http.ResponseWriter, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get hook")
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

// decode reads and validates a hook body. It writes the error response and
// returns false on failure.
func (h *HookHandler) decode(w http.ResponseWriter, r *http.Request, req *hookRequest) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	if len(req.Config) > 0 && !json.Valid(req.Config) {
		writeError(w, http.StatusBadRequest, "config must be JSON")
		return false
	}
	if h.plugins == nil {
		return true
	}

	p, err := h.plugins.Get(req.PluginName)
	if errors.Is(err, plugin.ErrPluginNotFound) {
		writeError(w, http.StatusBadRequest, "Plugin not found")
		return false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up plugin")
		return false
	}
	if !p.Manifest.Supports(req.ActionName) {
		writeError(w, http.StatusBadRequest, "Plugin does not support action "+req.ActionName)
		return false
	}
	return true
}

func (h *HookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req hookRequest
	if !h.decode(w, r, &req) {
		return
	}

	hk := &store.Hook{
		ID:         uuid.New().String(),
		Event:      req.Event,
		PluginName: req.PluginName,
		ActionName: req.ActionName,
		Config:     req.Config,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Hooks().Create(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook")
		return
	}
	writeJSON(w, http.StatusCreated, toHookResponse(hk))
}

func (h *HookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		h.storeError(w, err, "Failed to get hook")
		return
	}

	req := hookRequest{
		Event:      hk.Event,
		PluginName: hk.PluginName,
		ActionName: hk.ActionName,
		Config:     hk.Config,
	}
	if !h.decode(w, r, &req) {
		return
	}

	hk.Event = req.Event
	hk.PluginName = req.PluginName
	hk.ActionName = req.ActionName
	hk.Config = req.Config
	if req.Enabled != nil {
		hk.Enabled = *req.Enabled
	}

	if err := h.store.Hooks().Update(hk); err != nil {
		h.storeError(w, err, "Failed to update hook")
		return
	}
	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

func (h *HookHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Hooks().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete hook")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HookHandler) storeError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Hook not found")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}
