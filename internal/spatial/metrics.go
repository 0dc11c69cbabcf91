package spatial

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// boxesLoaded counts boxes inserted by index ("entity" or "segment")
	boxesLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_spatial_boxes_loaded_total",
		Help: "Total bounding boxes inserted into the spatial index",
	}, []string{"index"})

	// boxesRemoved counts boxes removed by index
	boxesRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_spatial_boxes_removed_total",
		Help: "Total bounding boxes removed from the spatial index",
	}, []string{"index"})

	// updatesTotal counts index updates by trigger ("rebase" or "graph")
	updatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_spatial_updates_total",
		Help: "Total spatial index updates by trigger",
	}, []string{"trigger"})

	// updateEntities tracks how many entities one update re-indexes
	updateEntities = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geoedit_spatial_update_entities",
		Help:    "Entities re-indexed per spatial index update",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
	})
)
