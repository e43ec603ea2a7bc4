// Package dispatch evaluates every trigger against an extracted line and hands
// each match to the action boundary.
package dispatch

import (
	"context"

	"github.com/antredesloutres/otternel/internal/domain"
	"github.com/antredesloutres/otternel/internal/metrics"
	"github.com/antredesloutres/otternel/internal/trigger"
	"github.com/rs/zerolog/log"
)

// Invoker executes actions by identifier.
// Invoke must return promptly: any I/O has to run detached from the caller.
// Unknown identifiers are the Invoker's to reject and report.
type Invoker interface {
	Invoke(ctx context.Context, action string, line string, source domain.SourceID)
}

// Dispatcher fans a line out to every matching trigger
type Dispatcher struct {
	triggers []trigger.Trigger
	invoker  Invoker
}

// New creates a dispatcher over a snapshot of the registry's triggers
func New(registry *trigger.Registry, invoker Invoker) *Dispatcher {
	return &Dispatcher{
		triggers: registry.Triggers(),
		invoker:  invoker,
	}
}

// HandleLine invokes the action of every trigger matching the line and returns
// the number of dispatches. There is no first-match short-circuit.
func (d *Dispatcher) HandleLine(ctx context.Context, line domain.ExtractedLine) int {
	dispatched := 0

	for _, t := range d.triggers {
		if !t.Matches(line.Text, line.Source, line.HasSource) {
			continue
		}

		log.Info().
			Str("trigger", t.Name).
			Str("action", t.Action).
			Uint32("source", uint32(line.Source)).
			Str("line", line.Text).
			Msg("Trigger matched")

		metrics.Dispatches.WithLabelValues(t.Action).Inc()
		d.invoker.Invoke(ctx, t.Action, line.Text, line.Source)
		dispatched++
	}

	return dispatched
}
