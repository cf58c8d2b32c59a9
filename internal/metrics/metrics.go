// Package metrics exposes an event store's usage statistics as
// prometheus metrics. The collector reads a fresh stats snapshot on
// every scrape; nothing is sampled or buffered here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"calcore/internal/store"
)

// StatsSource is the slice of the store the collector needs.
type StatsSource interface {
	Stats() store.Stats
}

// Collector implements prometheus.Collector over a store's stats.
type Collector struct {
	source StatsSource

	events    *prometheus.Desc
	recurring *prometheus.Desc
	cacheOps  *prometheus.Desc
	evictions *prometheus.Desc
}

// NewCollector builds a collector for one store.
func NewCollector(source StatsSource) *Collector {
	return &Collector{
		source: source,
		events: prometheus.NewDesc(
			"calcore_events",
			"Number of events currently held by the store.",
			nil, nil,
		),
		recurring: prometheus.NewDesc(
			"calcore_events_by_recurrence",
			"Number of stored events split by recurrence.",
			[]string{"recurring"}, nil,
		),
		cacheOps: prometheus.NewDesc(
			"calcore_query_cache_lookups_total",
			"Range-query cache lookups split by result.",
			[]string{"result"}, nil,
		),
		evictions: prometheus.NewDesc(
			"calcore_query_cache_evictions_total",
			"Range-query cache entries displaced by capacity pressure.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.events
	ch <- c.recurring
	ch <- c.cacheOps
	ch <- c.evictions
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.events, prometheus.GaugeValue,
		float64(stats.TotalEvents))
	ch <- prometheus.MustNewConstMetric(c.recurring, prometheus.GaugeValue,
		float64(stats.ByRecurring.Recurring), "true")
	ch <- prometheus.MustNewConstMetric(c.recurring, prometheus.GaugeValue,
		float64(stats.ByRecurring.NonRecurring), "false")
	ch <- prometheus.MustNewConstMetric(c.cacheOps, prometheus.CounterValue,
		float64(stats.Cache.Hits), "hit")
	ch <- prometheus.MustNewConstMetric(c.cacheOps, prometheus.CounterValue,
		float64(stats.Cache.Misses), "miss")
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue,
		float64(stats.Cache.Evictions))
}
