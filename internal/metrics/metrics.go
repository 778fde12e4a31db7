// Package metrics exposes Prometheus collectors for the exercise pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/necktilt/internal/exercise"
)

const namespace = "necktilt"

// Frame results for FramesProcessed.
const (
	ResultMeasured    = "measured"
	ResultLowSignal   = "low_signal"
	ResultDetectError = "detect_error"
)

// Metrics holds the collectors, registered on their own registry so tests
// and multiple apps do not collide.
type Metrics struct {
	registry *prometheus.Registry

	FramesProcessed    *prometheus.CounterVec
	RepsCompleted      *prometheus.CounterVec
	ExercisesCompleted prometheus.Counter
	SessionsStarted    prometheus.Counter
	TiltAngle          prometheus.Gauge
	HoldSeconds        prometheus.Gauge
	DetectDuration     prometheus.Histogram
	HookRuns           *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FramesProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "frames_processed_total",
				Help:      "Frames fed to the exercise session",
			},
			[]string{"result"}, // measured, low_signal, detect_error
		),
		RepsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reps_completed_total",
				Help:      "Completed holds counted as reps",
			},
			[]string{"side"},
		),
		ExercisesCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exercises_completed_total",
			Help:      "Sessions that reached the rep target",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Exercise sessions started",
		}),
		TiltAngle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tilt_angle_degrees",
			Help:      "Latest measured tilt magnitude",
		}),
		HoldSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hold_seconds",
			Help:      "Elapsed time of the current hold",
		}),
		DetectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detect_duration_seconds",
			Help:      "Pose detection latency per frame",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		}),
		HookRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "hook_runs_total",
				Help:      "Event hook executions",
			},
			[]string{"event", "status"},
		),
	}
}

// Observe records one processed frame.
func (m *Metrics) Observe(fb exercise.Feedback, valid bool) {
	if !valid {
		m.FramesProcessed.WithLabelValues(ResultLowSignal).Inc()
		return
	}
	m.FramesProcessed.WithLabelValues(ResultMeasured).Inc()
	m.TiltAngle.Set(fb.Angle)
	m.HoldSeconds.Set(fb.HoldSeconds)

	for _, ev := range fb.Events() {
		switch ev {
		case exercise.EventRepCompleted:
			m.RepsCompleted.WithLabelValues(fb.EventSide.String()).Inc()
		case exercise.EventExerciseComplete:
			m.ExercisesCompleted.Inc()
		}
	}
}

// ObserveDetect records detection latency and failures.
func (m *Metrics) ObserveDetect(d time.Duration, err error) {
	m.DetectDuration.Observe(d.Seconds())
	if err != nil {
		m.FramesProcessed.WithLabelValues(ResultDetectError).Inc()
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
