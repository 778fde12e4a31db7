// Package app ties the camera, pose detector and exercise session together
// and exposes the commands used by the HTTP server and the tray.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/necktilt/internal/capture"
	"github.com/ayusman/necktilt/internal/exercise"
	"github.com/ayusman/necktilt/internal/metrics"
	"github.com/ayusman/necktilt/internal/plugin"
	"github.com/ayusman/necktilt/internal/pose"
	"github.com/ayusman/necktilt/internal/store"
)

var (
	// ErrCameraStopped is returned when an exercise is started without a
	// running camera.
	ErrCameraStopped = errors.New("camera is not running")
	// ErrInvalidConfig wraps validation failures of exercise settings.
	ErrInvalidConfig = errors.New("invalid exercise config")
)

const (
	defaultHookTimeout = 5 * time.Second
	subscriberBuffer   = 8
)

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	PluginDir    string
	CameraID     int
	MotionThresh float64
	HookTimeout  time.Duration
	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
}

// App owns the single exercise session and the capture pipeline feeding it.
type App struct {
	config   Config
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	validate *validator.Validate

	motion    *capture.MotionDetector
	pluginMgr *plugin.Manager
	hooks     *plugin.Dispatcher
	hookWG    sync.WaitGroup

	// lifecycle serializes StartCamera and StopCamera end to end.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	camera   capture.Camera
	detector pose.Detector
	session  *exercise.Session
	latest   exercise.Feedback
	frame    []byte
	frameSeq uint64
	stopCh   chan struct{}
	doneCh   chan struct{}
	subs     map[int]chan exercise.Feedback
	nextSub  int
	now      func() time.Time
}

// New creates an App. It uses the MediaPipe pose service when available and
// a mock detector otherwise.
func New(config Config) *App {
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := config.Metrics
	if m == nil {
		m = metrics.New()
	}
	thresh := config.MotionThresh
	if thresh <= 0 {
		thresh = 0.01
	}
	if config.HookTimeout <= 0 {
		config.HookTimeout = defaultHookTimeout
	}

	a := &App{
		config:    config,
		log:       log,
		metrics:   m,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		motion:    capture.NewMotionDetector(thresh),
		pluginMgr: plugin.NewManager(config.PluginDir, log),
		camera:    capture.NewCamera(capture.DefaultConfig(config.CameraID)),
		session:   exercise.NewSession(exercise.DefaultConfig()),
		subs:      make(map[int]chan exercise.Feedback),
		now:       time.Now,
	}
	a.latest = a.session.Feedback()

	if config.Store != nil {
		a.hooks = plugin.NewDispatcher(config.Store.Hooks(), a.pluginMgr,
			plugin.NewExecutor(config.HookTimeout), log)
	}

	if mp, err := pose.NewMediaPipeDetector(pose.DefaultConfig(), log); err == nil {
		a.detector = mp
		log.Info("Using MediaPipe pose detection")
	} else {
		log.WithError(err).Warn("MediaPipe not available, using mock detector")
		a.detector = pose.NewMockDetector()
	}

	return a
}

// SetDetector replaces the pose detector.
func (a *App) SetDetector(d pose.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() pose.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetCamera replaces the camera. It must be called while the camera is
// stopped.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// SetClock overrides the time source used for frames from the pipeline.
func (a *App) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Metrics returns the collectors the app reports to.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// LoadSettings applies the stored exercise configuration, if any.
func (a *App) LoadSettings() error {
	if a.config.Store == nil {
		return nil
	}

	var cfg exercise.Config
	err := a.config.Store.Settings().GetJSON(store.SettingExercise, &cfg)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.checkConfig(cfg); err != nil {
		a.log.WithError(err).Warn("Ignoring stored exercise settings")
		return nil
	}

	a.mu.Lock()
	a.session.SetConfig(cfg)
	a.latest = a.session.Feedback()
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"angle": cfg.AngleThreshold,
		"hold":  cfg.HoldSeconds,
		"reps":  cfg.TargetRepsPerSide,
	}).Info("Loaded exercise settings")
	return nil
}

func (a *App) checkConfig(cfg exercise.Config) error {
	if err := a.validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ExerciseConfig returns the thresholds the next session will use.
func (a *App) ExerciseConfig() exercise.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Config()
}

// UpdateExerciseConfig validates, persists and applies cfg. A running
// session keeps its thresholds until it is restarted.
func (a *App) UpdateExerciseConfig(cfg exercise.Config) error {
	if err := a.checkConfig(cfg); err != nil {
		return err
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetJSON(store.SettingExercise, cfg); err != nil {
			return fmt.Errorf("save exercise settings: %w", err)
		}
	}

	a.mu.Lock()
	a.session.SetConfig(cfg)
	a.latest = a.session.Feedback()
	a.publishLocked(a.latest)
	a.mu.Unlock()
	return nil
}

// StartCamera opens the camera and starts the capture pipeline. It is a
// no-op when the camera is already running.
func (a *App) StartCamera() error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(capture.PreviewFPS)
	a.motion.Reset()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.log.WithField("fps", capture.PreviewFPS).Info("Camera started")
	return nil
}

// StopCamera halts the pipeline and closes the camera. A running exercise
// is stopped too.
func (a *App) StopCamera() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	stop, done := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done

	a.mu.Lock()
	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("Error closing camera")
	}
	a.frame = nil
	stopped := a.session.Stop() == nil
	fb := a.session.Feedback()
	a.latest = fb
	if stopped {
		a.publishLocked(fb)
	}
	a.mu.Unlock()

	if stopped {
		a.log.WithField("session_id", fb.SessionID).Info("Exercise stopped with camera")
	}
	a.log.Info("Camera stopped")
}

// CameraRunning reports whether the capture pipeline is active.
func (a *App) CameraRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// StartExercise begins a new session. The camera must be running.
func (a *App) StartExercise() error {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return ErrCameraStopped
	}
	if err := a.session.Start(); err != nil {
		a.mu.Unlock()
		return err
	}
	a.camera.SetFPS(capture.ExerciseFPS)
	fb := a.session.Feedback()
	a.latest = fb
	a.publishLocked(fb)
	a.mu.Unlock()

	a.metrics.SessionsStarted.Inc()
	a.log.WithFields(logrus.Fields{
		"session_id": fb.SessionID,
		"target":     fb.Target,
	}).Info("Exercise started")
	return nil
}

// StopExercise stops the current session, keeping its reps visible.
func (a *App) StopExercise() error {
	a.mu.Lock()
	if err := a.session.Stop(); err != nil {
		a.mu.Unlock()
		return err
	}
	fb := a.session.Feedback()
	a.latest = fb
	a.publishLocked(fb)
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"session_id": fb.SessionID,
		"reps":       fb.Reps,
	}).Info("Exercise stopped")
	return nil
}

// Snapshot returns the most recent feedback.
func (a *App) Snapshot() exercise.Feedback {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// tracking reports whether frames should go through pose detection.
func (a *App) tracking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.State().Status != exercise.StatusStopped
}

// ProcessKeypoints feeds one detector result through the session and fans
// the feedback out to metrics, subscribers and hooks. Subscribers receive it
// before the lock is released so a later command's update cannot be
// overtaken by a stale frame.
func (a *App) ProcessKeypoints(points []pose.Keypoint, now time.Time) exercise.Feedback {
	a.mu.Lock()
	sample := pose.Extract(points, a.session.State().Config.MinConfidence)
	fb := a.session.ProcessFrame(sample, now)
	a.latest = fb
	a.publishLocked(fb)
	a.mu.Unlock()

	a.metrics.Observe(fb, sample.Valid)

	events := fb.Events()
	for _, ev := range events {
		a.log.WithFields(logrus.Fields{
			"session_id": fb.SessionID,
			"side":       fb.EventSide.String(),
			"reps":       fb.Reps,
			"event":      ev.String(),
		}).Info(fb.Message)
	}
	a.fireHooks(fb, events)
	return fb
}

// fireHooks runs the hooks for events in order on one goroutine.
func (a *App) fireHooks(fb exercise.Feedback, events []exercise.Event) {
	if a.hooks == nil || len(events) == 0 {
		return
	}

	infos := make([]plugin.EventInfo, 0, len(events))
	for _, ev := range events {
		infos = append(infos, plugin.EventInfo{
			Name:      ev.String(),
			SessionID: fb.SessionID,
			Side:      fb.EventSide.String(),
			Reps:      fb.Reps,
			Target:    fb.Target,
			Message:   fb.Message,
		})
	}

	a.hookWG.Add(1)
	go func() {
		defer a.hookWG.Done()

		for _, ev := range infos {
			a.runHooks(ev)
		}
	}()
}

func (a *App) runHooks(ev plugin.EventInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.HookTimeout)
	defer cancel()

	results, err := a.hooks.Fire(ctx, ev)
	if err != nil {
		a.log.WithError(err).WithField("event", ev.Name).Warn("Could not run hooks")
		return
	}
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "error"
		}
		a.metrics.HookRuns.WithLabelValues(ev.Name, status).Inc()
	}
}

// WaitHooks blocks until hooks already fired have finished.
func (a *App) WaitHooks() {
	a.hookWG.Wait()
}

// Subscribe registers for feedback updates. Slow subscribers miss updates
// rather than block the pipeline. Call cancel to unsubscribe.
func (a *App) Subscribe() (<-chan exercise.Feedback, func()) {
	ch := make(chan exercise.Feedback, subscriberBuffer)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// publishLocked offers fb to every subscriber without blocking. The caller
// must hold a.mu for writing.
func (a *App) publishLocked(fb exercise.Feedback) {
	for _, ch := range a.subs {
		select {
		case ch <- fb:
		default:
		}
	}
}

// LatestFrame returns the most recent JPEG frame and its sequence number.
// The sequence increases with every stored frame.
func (a *App) LatestFrame() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame, a.frameSeq
}

func (a *App) storeFrame(jpeg []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frame = jpeg
	a.frameSeq++
}

// Close stops the camera, waits for running hooks and releases the
// detector.
func (a *App) Close() {
	a.StopCamera()
	a.WaitHooks()
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			a.log.WithError(err).Warn("Error closing detector")
		}
	}
}
