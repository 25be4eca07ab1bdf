package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elimucloud/dawati/core/resource"
)

type readOutcome string

const (
	readHit   readOutcome = "hit"
	readMiss  readOutcome = "miss"
	readStale readOutcome = "stale"
)

var (
	readsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dawati",
		Subsystem: "cache",
		Name:      "reads_total",
		Help:      "Cache reads by kind and outcome (hit, miss, stale).",
	}, []string{"kind", "outcome"})

	patchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dawati",
		Subsystem: "cache",
		Name:      "patches_total",
		Help:      "In-place record patches by kind.",
	}, []string{"kind"})

	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dawati",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Entry invalidations by kind.",
	}, []string{"kind"})
)

func observeRead(kind resource.Kind, outcome readOutcome) {
	readsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

func observePatch(kind resource.Kind) {
	patchesTotal.WithLabelValues(string(kind)).Inc()
}

func observeInvalidation(kind resource.Kind) {
	invalidationsTotal.WithLabelValues(string(kind)).Inc()
}
