package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/talonbgp/talon/pkg/peerindex"
)

// Collector exposes the index counters to prometheus. It keeps no state
// of its own, every scrape reads a fresh stats snapshot.
type Collector struct {
	index *peerindex.Index

	peers     *prometheus.Desc
	capacity  *prometheus.Desc
	freeIDs   *prometheus.Desc
	pending   *prometheus.Desc
	deposits  *prometheus.Desc
	claims    *prometheus.Desc
	replaced  *prometheus.Desc
	discarded *prometheus.Desc
	conflicts *prometheus.Desc
}

// NewCollector creates Collector instances
func NewCollector(index *peerindex.Index) *Collector {
	return &Collector{
		index: index,
		peers: prometheus.NewDesc(
			"talon_index_peers", "Number of registered neighbors.", nil, nil),
		capacity: prometheus.NewDesc(
			"talon_index_capacity", "Maximum number of peer ids the index can assign.", nil, nil),
		freeIDs: prometheus.NewDesc(
			"talon_index_free_ids", "Peer ids available for new registrations.", nil, nil),
		pending: prometheus.NewDesc(
			"talon_index_pending_connections", "Accepted connections parked and not yet claimed.", nil, nil),
		deposits: prometheus.NewDesc(
			"talon_index_deposits_total", "Connections the acceptor parked in the index.", nil, nil),
		claims: prometheus.NewDesc(
			"talon_index_claims_total", "Parked connections claimed by the session side.", nil, nil),
		replaced: prometheus.NewDesc(
			"talon_index_replaced_total", "Parked connections displaced by a fresher one.", nil, nil),
		discarded: prometheus.NewDesc(
			"talon_index_discarded_total", "Parked connections discarded because nobody claimed them.", nil, nil),
		conflicts: prometheus.NewDesc(
			"talon_index_conflicts_total", "Registrations refused because of address or capacity conflicts.", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.peers
	ch <- c.capacity
	ch <- c.freeIDs
	ch <- c.pending
	ch <- c.deposits
	ch <- c.claims
	ch <- c.replaced
	ch <- c.discarded
	ch <- c.conflicts
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.index.Stats()
	ch <- prometheus.MustNewConstMetric(c.peers, prometheus.GaugeValue, float64(stats.Peers))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.Capacity))
	ch <- prometheus.MustNewConstMetric(c.freeIDs, prometheus.GaugeValue, float64(stats.FreeIDs))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(stats.Pending))
	ch <- prometheus.MustNewConstMetric(c.deposits, prometheus.CounterValue, float64(stats.Deposits))
	ch <- prometheus.MustNewConstMetric(c.claims, prometheus.CounterValue, float64(stats.Claims))
	ch <- prometheus.MustNewConstMetric(c.replaced, prometheus.CounterValue, float64(stats.Replaced))
	ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(stats.Discarded))
	ch <- prometheus.MustNewConstMetric(c.conflicts, prometheus.CounterValue, float64(stats.Conflicts))
}
