// Package tray provides the system tray menu for the neck tilt trainer.
package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/exercise"
)

// Controller is the part of the application the menu drives.
// *app.App satisfies it.
type Controller interface {
	StartCamera() error
	StopCamera()
	CameraRunning() bool
	StartExercise() error
	StopExercise() error
	Snapshot() exercise.Feedback
}

// Tray represents the system tray application.
type Tray struct {
	ctl    Controller
	url    string
	log    logrus.FieldLogger
	onQuit func()
	open   func(url string) error
	mu     sync.RWMutex

	// Menu items stored for later updates
	menuCamera   *systray.MenuItem
	menuExercise *systray.MenuItem
	menuReps     *systray.MenuItem
}

// New creates a Tray driving ctl. url is opened by "Open in Browser".
func New(ctl Controller, url string, log logrus.FieldLogger) *Tray {
	return &Tray{
		ctl:  ctl,
		url:  url,
		log:  log.WithField("component", "tray"),
		open: openBrowser,
	}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and unblocks Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Necktilt")
	systray.SetTooltip("Neck tilt exercise trainer")

	t.mu.Lock()
	t.menuCamera = systray.AddMenuItem(cameraTitle(false), "Start or stop the webcam")
	t.menuExercise = systray.AddMenuItem(exerciseTitle(exercise.StatusStopped), "Start or stop the exercise")
	systray.AddSeparator()

	t.menuReps = systray.AddMenuItem(repsLabel(t.ctl.Snapshot()), "Reps completed")
	t.menuReps.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuBrowser := systray.AddMenuItem("Open in Browser", "Open the exercise view")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Necktilt")

	t.refresh()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuCamera.ClickedCh:
				t.handleCamera()
			case <-t.menuExercise.ClickedCh:
				t.handleExercise()
			case <-menuBrowser.ClickedCh:
				t.handleBrowser()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// Follow updates the menu from a feedback stream until it is closed.
func (t *Tray) Follow(updates <-chan exercise.Feedback) {
	for fb := range updates {
		t.show(fb, t.ctl.CameraRunning())
	}
}

func (t *Tray) handleCamera() {
	if t.ctl.CameraRunning() {
		t.ctl.StopCamera()
	} else if err := t.ctl.StartCamera(); err != nil {
		t.log.WithError(err).Error("Failed to start camera")
	}
	t.refresh()
}

func (t *Tray) handleExercise() {
	var err error
	if t.ctl.Snapshot().Status == exercise.StatusActive {
		err = t.ctl.StopExercise()
	} else {
		err = t.ctl.StartExercise()
	}
	if err != nil {
		t.log.WithError(err).Warn("Exercise command failed")
	}
	t.refresh()
}

func (t *Tray) handleBrowser() {
	if err := t.open(t.url); err != nil {
		t.log.WithError(err).WithField("url", t.url).Warn("Failed to open browser")
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func (t *Tray) refresh() {
	t.show(t.ctl.Snapshot(), t.ctl.CameraRunning())
}

func (t *Tray) show(fb exercise.Feedback, camera bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuCamera != nil {
		t.menuCamera.SetTitle(cameraTitle(camera))
	}
	if t.menuExercise != nil {
		t.menuExercise.SetTitle(exerciseTitle(fb.Status))
		if camera {
			t.menuExercise.Enable()
		} else {
			t.menuExercise.Disable()
		}
	}
	if t.menuReps != nil {
		t.menuReps.SetTitle(repsLabel(fb))
	}
}

func cameraTitle(running bool) string {
	if running {
		return "Stop Camera"
	}
	return "Start Camera"
}

func exerciseTitle(status exercise.Status) string {
	if status == exercise.StatusActive {
		return "Stop Exercise"
	}
	return "Start Exercise"
}

func repsLabel(fb exercise.Feedback) string {
	if fb.Status == exercise.StatusComplete {
		return fmt.Sprintf("Reps: %d/%d (done)", fb.Reps, fb.Target)
	}
	return fmt.Sprintf("Reps: %d/%d", fb.Reps, fb.Target)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
