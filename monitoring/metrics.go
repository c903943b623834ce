package monitoring

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "lnrouter"

	channelsHelp = "Number of verified channels in the channel graph."

	pendingChannelsHelp = "Number of announced channels awaiting " +
		"verification."
)

var (
	// PathFindingDuration tracks how long path finding takes.
	PathFindingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pathfinding",
		Name:      "duration_seconds",
		Help:      "Time spent finding a path through the graph.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	// OnionFailures counts onion packets that were refused, labelled by
	// the failure code reported upstream.
	OnionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "onion",
		Name:      "failures_total",
		Help:      "Number of onion packets that failed processing.",
	}, []string{"code"})

	collectors = []prometheus.Collector{
		PathFindingDuration,
		OnionFailures,
	}
)

// Register registers the process wide collectors of the package with reg.
// Calling Register twice with the same registerer is harmless.
func Register(reg prometheus.Registerer) error {
	return register(reg, collectors)
}

func register(reg prometheus.Registerer, cs []prometheus.Collector) error {
	for _, c := range cs {
		err := reg.Register(c)

		// Registering the very same collector again is fine, another
		// collector with the same identity is not.
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) &&
			alreadyRegistered.ExistingCollector == c {

			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// GraphMetrics holds the size gauges of a single channel graph. Graphs
// sharing a registerer must be told apart by their constant labels.
type GraphMetrics struct {
	// Channels tracks the number of verified channels in the graph.
	Channels prometheus.Gauge

	// PendingChannels tracks the number of announced channels awaiting
	// verification.
	PendingChannels prometheus.Gauge
}

// NewGraphMetrics creates the gauges of a graph, tagged with constLabels.
func NewGraphMetrics(constLabels prometheus.Labels) *GraphMetrics {
	return &GraphMetrics{
		Channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "graph",
			Name:        "channels",
			Help:        channelsHelp,
			ConstLabels: constLabels,
		}),
		PendingChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "graph",
			Name:        "pending_channels",
			Help:        pendingChannelsHelp,
			ConstLabels: constLabels,
		}),
	}
}

// Register registers the gauges of the graph with reg.
func (m *GraphMetrics) Register(reg prometheus.Registerer) error {
	return register(reg, []prometheus.Collector{
		m.Channels, m.PendingChannels,
	})
}

// SetSize records the number of verified and pending channels.
func (m *GraphMetrics) SetSize(verified, pending int) {
	m.Channels.Set(float64(verified))
	m.PendingChannels.Set(float64(pending))
}

// ObservePathFinding records the time elapsed since start.
func ObservePathFinding(start time.Time) {
	PathFindingDuration.Observe(time.Since(start).Seconds())
}

// IncOnionFailure counts an onion failure with the given code.
func IncOnionFailure(code string) {
	OnionFailures.WithLabelValues(code).Inc()
}
