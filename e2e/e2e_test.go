package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/necktilt/internal/app"
	"github.com/ayusman/necktilt/internal/capture"
	"github.com/ayusman/necktilt/internal/exercise"
	"github.com/ayusman/necktilt/internal/logging"
	"github.com/ayusman/necktilt/internal/pose"
	"github.com/ayusman/necktilt/internal/server"
	"github.com/ayusman/necktilt/internal/store"
)

// writeRecorder installs a plugin that appends every request it receives to
// events.log in root.
func writeRecorder(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh","actions":["record"]}`
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	log := filepath.Join(root, "events.log")
	script := "#!/bin/sh\ncat >> " + log + "\necho >> " + log + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return log
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	pluginDir := filepath.Join(tmpDir, "plugins")
	eventsLog := writeRecorder(t, pluginDir)

	application := app.New(app.Config{
		Store:     s,
		PluginDir: pluginDir,
		Logger:    logging.Discard(),
	})
	defer application.Close()
	application.SetCamera(capture.NewReplayCamera(nil, false))
	application.SetDetector(pose.NewMockDetector())
	if err := application.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	srv := server.New(server.Config{
		Store:         s,
		App:           application,
		Plugins:       application.PluginManager(),
		Metrics:       application.Metrics().Handler(),
		CameraStopped: app.ErrCameraStopped,
		Logger:        logging.Discard(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	send := func(method, path, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s error = %v", method, path, err)
		}
		return resp
	}
	expect := func(resp *http.Response, code int) {
		t.Helper()
		defer resp.Body.Close()
		if resp.StatusCode != code {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("%s %s status = %d, want %d: %s",
				resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, code, body)
		}
	}

	t.Run("ConfigureShortExercise", func(t *testing.T) {
		expect(send(http.MethodPut, "/api/settings", `{"target_reps_per_side": 2}`), http.StatusOK)
	})

	t.Run("RegisterHook", func(t *testing.T) {
		expect(send(http.MethodPost, "/api/hooks",
			`{"event": "exercise_complete", "plugin_name": "recorder", "action_name": "record", "config": {"note": "done"}}`),
			http.StatusCreated)
	})

	t.Run("StartRequiresCamera", func(t *testing.T) {
		expect(send(http.MethodPost, "/api/exercise/start", ""), http.StatusConflict)
	})

	expect(send(http.MethodPost, "/api/camera/start", ""), http.StatusOK)
	expect(send(http.MethodPost, "/api/exercise/start", ""), http.StatusOK)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/feedback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first exercise.Feedback
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot error = %v", err)
	}
	if first.Status != exercise.StatusActive || first.Target != 4 {
		t.Fatalf("snapshot = %+v, want active with target 4", first)
	}

	t.Run("PerformExercise", func(t *testing.T) {
		start := time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)
		clock := 0.0
		var events []string
		var last exercise.Feedback

		// Each frame publishes exactly one message; reading in step keeps
		// the subscriber buffer from overflowing.
		feed := func(angle float64) {
			now := start.Add(time.Duration(clock * float64(time.Second)))
			application.ProcessKeypoints(pose.TiltedPose(angle, 0.95), now)
			clock += 0.5

			var fb exercise.Feedback
			if err := conn.ReadJSON(&fb); err != nil {
				t.Fatalf("read feedback error = %v", err)
			}
			last = fb
			for _, ev := range last.Events() {
				events = append(events, ev.String()+":"+last.EventSide.String())
			}
		}

		for _, angle := range []float64{25, -25, 25, -25} {
			for i := 0; i < 7; i++ {
				feed(angle)
			}
			feed(0)
		}

		if last.Status != exercise.StatusComplete {
			t.Errorf("final status = %v, want complete", last.Status)
		}
		want := []string{
			"rep_completed:right", "rep_completed:left", "rep_completed:right",
			"rep_completed:left", "exercise_complete:left",
		}
		if strings.Join(events, ",") != strings.Join(want, ",") {
			t.Errorf("events = %v, want %v", events, want)
		}
	})

	t.Run("SnapshotShowsCompletion", func(t *testing.T) {
		resp := send(http.MethodGet, "/api/exercise", "")
		defer resp.Body.Close()

		var snap struct {
			Status  string `json:"status"`
			Reps    int    `json:"reps"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&snap)
		if snap.Status != "complete" || snap.Reps != 4 || snap.Message != exercise.MessageComplete {
			t.Errorf("snapshot = %+v", snap)
		}
	})

	t.Run("HookRan", func(t *testing.T) {
		application.WaitHooks()
		data, err := os.ReadFile(eventsLog)
		if err != nil {
			t.Fatalf("hook did not run: %v", err)
		}
		var req struct {
			Action string          `json:"action"`
			Config json.RawMessage `json:"config"`
			Event  struct {
				Name string `json:"name"`
				Reps int    `json:"reps"`
			} `json:"event"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &req); err != nil {
			t.Fatalf("events.log = %q: %v", data, err)
		}
		if req.Action != "record" || req.Event.Name != "exercise_complete" || req.Event.Reps != 4 {
			t.Errorf("plugin request = %+v", req)
		}
		if string(req.Config) != `{"note":"done"}` {
			t.Errorf("plugin config = %s", req.Config)
		}
	})

	t.Run("MetricsExported", func(t *testing.T) {
		resp := send(http.MethodGet, "/metrics", "")
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		for _, line := range []string{
			"necktilt_exercises_completed_total 1",
			"necktilt_sessions_started_total 1",
			`necktilt_reps_completed_total{side="left"} 2`,
			`necktilt_hook_runs_total{event="exercise_complete",status="ok"} 1`,
		} {
			if !strings.Contains(string(body), line) {
				t.Errorf("metrics missing %q", line)
			}
		}
	})

	t.Run("StopCameraStopsExercise", func(t *testing.T) {
		resp := send(http.MethodPost, "/api/camera/stop", "")
		defer resp.Body.Close()

		var snap struct {
			Status        string `json:"status"`
			Reps          int    `json:"reps"`
			CameraRunning bool   `json:"camera_running"`
		}
		json.NewDecoder(resp.Body).Decode(&snap)
		if snap.Status != "stopped" || snap.CameraRunning || snap.Reps != 4 {
			t.Errorf("after camera stop = %+v", snap)
		}
	})
}
