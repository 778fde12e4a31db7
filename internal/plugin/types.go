// Package plugin discovers and runs external plugins that react to exercise
// events.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// EventInfo describes the session event that triggered a plugin.
type EventInfo struct {
	Name      string `json:"name"`
	SessionID string `json:"session_id,omitempty"`
	Side      string `json:"side,omitempty"`
	Reps      int    `json:"reps"`
	Target    int    `json:"target"`
	Message   string `json:"message"`
}

// Request is written as JSON to the plugin's stdin.
type Request struct {
	Action string          `json:"action"`
	Event  EventInfo       `json:"event"`
	Config json.RawMessage `json:"config"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is read as JSON from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
