package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// editsTotal counts stack operations by kind
	editsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_history_operations_total",
		Help: "Total history stack operations by kind",
	}, []string{"op"})

	mergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geoedit_history_merges_total",
		Help: "Total entity merges into the base graph",
	})

	// restoresTotal counts saved histories read back, by outcome
	restoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_history_restores_total",
		Help: "Total saved histories restored by outcome",
	}, []string{"outcome"})
)
