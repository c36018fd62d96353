package shoal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics. Labels are bounded by the Category and EventType enums.
var (
	eventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shoal_events_dispatched_total",
		Help: "Events delivered to a non-empty listener registry, by category",
	}, []string{"category"})

	hitTests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoal_hit_tests_total",
		Help: "Pointer hit tests performed against a stage",
	})

	animationTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoal_animation_ticks_total",
		Help: "Scheduler ticks delivered to running animations",
	})

	repaints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoal_repaints_total",
		Help: "Full stage repaints performed",
	})

	repaintDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shoal_repaint_duration_seconds",
		Help:    "Time spent painting the stage tree",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033},
	})

	deferredFocus = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shoal_deferred_focus_total",
		Help: "Focus requests deferred until the target becomes visible",
	})
)

func countDispatch(t EventType) {
	eventsDispatched.WithLabelValues(t.Category().String()).Inc()
}

func observeRepaint(start time.Time) {
	repaints.Inc()
	repaintDuration.Observe(time.Since(start).Seconds())
}
