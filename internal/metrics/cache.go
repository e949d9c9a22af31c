package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheStats reports cumulative L1 hits, L2 hits and loads.
type CacheStats func() (l1Hits, l2Hits, loads uint64)

type cacheCollector struct {
	stats CacheStats
	hits  *prometheus.Desc
	loads *prometheus.Desc
}

// NewCacheCollector exposes read-through cache counters. Values are read on
// every scrape.
func NewCacheCollector(stats CacheStats) prometheus.Collector {
	return &cacheCollector{
		stats: stats,
		hits: prometheus.NewDesc(
			"giveaway_cache_hits_total",
			"Cache hits by layer",
			[]string{"layer"}, nil,
		),
		loads: prometheus.NewDesc(
			"giveaway_cache_loads_total",
			"Cache misses served by the backing store",
			nil, nil,
		),
	}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.loads
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	l1, l2, loads := c.stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(l1), "l1")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(l2), "l2")
	ch <- prometheus.MustNewConstMetric(c.loads, prometheus.CounterValue, float64(loads))
}
