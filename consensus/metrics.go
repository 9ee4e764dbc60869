package consensus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConsensusMetricsValue holds the store's metrics. Collectors are registered
// on the registerer passed to NewConsensusMetricsValue; a nil registerer
// yields working but unregistered collectors.
type ConsensusMetricsValue struct {
	LastDecidedView              prometheus.Gauge
	LastDecidedTime              prometheus.Gauge
	CurrentView                  prometheus.Gauge
	LockedView                   prometheus.Gauge
	NumberOfViewsSinceLastDecide prometheus.Gauge
	NumberOfViewsPerDecideEvent  prometheus.Histogram
	ValidatedStates              prometheus.Gauge
	SavedLeaves                  prometheus.Gauge
	StaleUpdates                 *prometheus.CounterVec
	GarbageCollectedViews        prometheus.Counter
	VidDisperseDuration          prometheus.Histogram
}

func NewConsensusMetricsValue(reg prometheus.Registerer, namespace string) *ConsensusMetricsValue {
	factory := promauto.With(reg)

	return &ConsensusMetricsValue{
		LastDecidedView: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "last_decided_view",
			Help:      "The last decided view",
		}),
		LastDecidedTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "last_decided_time_seconds",
			Help:      "Unix time of the last decide",
		}),
		CurrentView: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "current_view",
			Help:      "The current view",
		}),
		LockedView: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "locked_view",
			Help:      "The locked view",
		}),
		NumberOfViewsSinceLastDecide: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "views_since_last_decide",
			Help:      "Number of views in flight since the last decided view",
		}),
		NumberOfViewsPerDecideEvent: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "views_per_decide_event",
			Help:      "Number of views decided by one decide event",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		ValidatedStates: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "validated_states",
			Help:      "Number of entries in the validated state map",
		}),
		SavedLeaves: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "saved_leaves",
			Help:      "Number of saved leaves",
		}),
		StaleUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "stale_updates_total",
			Help:      "Number of rejected marker updates that were not newer",
		}, []string{"marker"}),
		GarbageCollectedViews: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "garbage_collected_views_total",
			Help:      "Number of state map entries removed by garbage collection",
		}),
		VidDisperseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MOD_NAME,
			Name:      "vid_disperse_duration_seconds",
			Help:      "Duration of VID dispersal for saved payloads",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
