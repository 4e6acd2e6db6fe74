package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsDispatched counts events handed to React.
	eventsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicsim",
		Subsystem: "engine",
		Name:      "events_dispatched_total",
		Help:      "Total events dispatched to elements",
	})

	// eventsCoalesced counts posts dropped because an identical reaction
	// was already pending.
	eventsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicsim",
		Subsystem: "engine",
		Name:      "events_coalesced_total",
		Help:      "Total posts coalesced into an already pending event",
	})

	// runsFinished counts finished runs.
	// Labels: reason (termination reason, or "aborted")
	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logicsim",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Total simulation runs by termination reason",
	}, []string{"reason"})

	// topologyErrors counts runs refused at start.
	topologyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicsim",
		Subsystem: "engine",
		Name:      "topology_errors_total",
		Help:      "Total runs refused because the wire graph is invalid",
	})
)
