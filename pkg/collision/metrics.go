package collision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	groupLabel   = "group"
	storageLabel = "storage"
)

var (
	buildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadcollide_build_duration_seconds",
		Help:    "Time spent rebuilding a collision tree.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	}, []string{groupLabel})

	treeNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadcollide_tree_nodes",
		Help: "The number of nodes in the last built tree, by storage.",
	}, []string{groupLabel, storageLabel})

	treeDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "quadcollide_tree_depth",
		Help: "The depth in effect for the last build, including growth.",
	}, []string{groupLabel})

	treeGrowthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadcollide_tree_growth_total",
		Help: "The total number of times a root was doubled to reach a body.",
	}, []string{groupLabel})

	collisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quadcollide_collisions_total",
		Help: "The total number of overlaps reported by queries.",
	}, []string{groupLabel})
)

func instrumentBuild(group string, elapsed time.Duration, stats Stats, growths int) {
	buildDuration.
		With(prometheus.Labels{groupLabel: group}).
		Observe(elapsed.Seconds())

	treeNodes.
		With(prometheus.Labels{groupLabel: group, storageLabel: "pool"}).
		Set(float64(stats.PoolNodes))
	treeNodes.
		With(prometheus.Labels{groupLabel: group, storageLabel: "overflow"}).
		Set(float64(stats.OverflowNodes))

	treeDepth.
		With(prometheus.Labels{groupLabel: group}).
		Set(float64(stats.Depth))

	if growths > 0 {
		treeGrowthTotal.
			With(prometheus.Labels{groupLabel: group}).
			Add(float64(growths))
	}
}

func instrumentCollisions(group string, n int) {
	collisionsTotal.
		With(prometheus.Labels{groupLabel: group}).
		Add(float64(n))
}
