// Package main is a plugin that announces exercise events through the
// desktop: spoken text, notifications and a short beep.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action string          `json:"action"`
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Event is the session event that triggered the plugin.
type Event struct {
	Name    string `json:"name"`
	Side    string `json:"side"`
	Reps    int    `json:"reps"`
	Target  int    `json:"target"`
	Message string `json:"message"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is the per-hook configuration.
type Config struct {
	// Text replaces the event message when set.
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Title string `json:"title"`
}

type actionHandler func(text string, cfg Config) error

var actionHandlers = map[string]actionHandler{
	"speak":  speak,
	"notify": notify,
	"beep":   beep,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(fmt.Errorf("unknown action: %s", req.Action))
		return
	}

	var cfg Config
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	text := cfg.Text
	if text == "" {
		text = req.Event.Message
	}
	if text == "" {
		text = fmt.Sprintf("%d of %d reps done.", req.Event.Reps, req.Event.Target)
	}

	if err := handler(text, cfg); err != nil {
		writeResponse(fmt.Errorf("action %s failed: %w", req.Action, err))
		return
	}
	writeResponse(nil)
}

func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// run executes the first available command from candidates.
func run(candidates ...[]string) error {
	for _, argv := range candidates {
		if _, err := exec.LookPath(argv[0]); err != nil {
			continue
		}
		out, err := exec.Command(argv[0], argv[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", argv[0], err, out)
		}
		return nil
	}
	return errors.New("no supported command found on this system")
}

func speak(text string, cfg Config) error {
	if runtime.GOOS == "darwin" {
		args := []string{"say"}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		return run(append(args, text))
	}
	return run(
		[]string{"spd-say", "--wait", text},
		[]string{"espeak", text},
	)
}

func notify(text string, cfg Config) error {
	title := cfg.Title
	if title == "" {
		title = "Neck Tilt"
	}
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", text, title)
		return run([]string{"osascript", "-e", script})
	}
	return run([]string{"notify-send", title, text})
}

func beep(string, Config) error {
	if runtime.GOOS == "darwin" {
		return run([]string{"osascript", "-e", "beep"})
	}
	return run(
		[]string{"paplay", "/usr/share/sounds/freedesktop/stereo/complete.oga"},
		[]string{"canberra-gtk-play", "-i", "complete"},
	)
}
