package pruning

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRowGroups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "pruning_row_groups_total",
		Help:      "Row groups considered for pruning by outcome.",
	}, []string{"outcome"})

	metricCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "pruning_cache_lookups_total",
		Help:      "Row group decision cache lookups by result.",
	}, []string{"result"})

	metricSelectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "colscan",
		Name:      "pruning_select_duration_seconds",
		Help:      "Time spent selecting the row groups of a file.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})
)

const (
	outcomeKept    = "kept"
	outcomeDropped = "dropped"
)
