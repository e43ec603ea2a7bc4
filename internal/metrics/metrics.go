// Package metrics holds the Prometheus collectors of the watcher.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LinesExtracted counts lines handed to the dispatcher
	LinesExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "otternel",
		Name:      "lines_extracted_total",
		Help:      "Lines selected by the last-line policy and passed to the dispatcher.",
	})

	// ReadErrors counts failed read cycles (file vanished, permission denied, ...)
	ReadErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "otternel",
		Name:      "read_errors_total",
		Help:      "Read cycles that failed with an I/O error.",
	})

	// Rotations counts detected truncations/rotations
	Rotations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "otternel",
		Name:      "rotations_total",
		Help:      "Files whose length dropped below the stored offset.",
	})

	// Dispatches counts trigger matches per action identifier
	Dispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "otternel",
		Name:      "dispatches_total",
		Help:      "Trigger matches dispatched to the action boundary.",
	}, []string{"action"})

	// UnknownActions counts dispatches rejected by the action boundary
	UnknownActions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "otternel",
		Name:      "unknown_actions_total",
		Help:      "Dispatches naming an action identifier no handler knows.",
	})

	// ActionDuration observes action execution time
	ActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "otternel",
		Name:      "action_duration_seconds",
		Help:      "Duration of action handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action", "outcome"})
)

// Register registers all collectors on reg. Collectors already registered are ignored.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		LinesExtracted,
		ReadErrors,
		Rotations,
		Dispatches,
		UnknownActions,
		ActionDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
