package metrics

import (
	"sync"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHitsDesc = prometheus.NewDesc(
		"hmis_cache_hits_total", "Cache lookups served from memory.", []string{"cache"}, nil,
	)
	cacheMissesDesc = prometheus.NewDesc(
		"hmis_cache_misses_total", "Cache lookups that required a load.", []string{"cache"}, nil,
	)
	cacheEvictionsDesc = prometheus.NewDesc(
		"hmis_cache_evictions_total", "Entries removed from the cache.", []string{"cache"}, nil,
	)
	cacheItemsDesc = prometheus.NewDesc(
		"hmis_cache_items", "Entries currently held by the cache.", []string{"cache"}, nil,
	)
)

type cacheStats struct {
	metrics func() ttlcache.Metrics
	size    func() int
}

// CacheCollector exports ttlcache counters for every registered cache.
type CacheCollector struct {
	mu     sync.RWMutex
	caches map[string]cacheStats
}

func NewCacheCollector() *CacheCollector {
	return &CacheCollector{caches: make(map[string]cacheStats)}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- cacheEvictionsDesc
	ch <- cacheItemsDesc
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for name, stats := range c.caches {
		m := stats.metrics()
		ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(m.Hits), name)
		ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(m.Misses), name)
		ch <- prometheus.MustNewConstMetric(cacheEvictionsDesc, prometheus.CounterValue, float64(m.Evictions), name)
		ch <- prometheus.MustNewConstMetric(cacheItemsDesc, prometheus.GaugeValue, float64(stats.size()), name)
	}
}

func (c *CacheCollector) add(name string, stats cacheStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caches[name] = stats
}

var defaultCacheCollector = func() *CacheCollector {
	c := NewCacheCollector()
	prometheus.MustRegister(c)
	return c
}()

// WatchCache adds cache to collector under name, replacing any cache registered with the same name.
func WatchCache[K comparable, V any](collector *CacheCollector, name string, cache *ttlcache.Cache[K, V]) {
	collector.add(name, cacheStats{metrics: cache.Metrics, size: cache.Len})
}

// RegisterCache exports cache through the default registry.
func RegisterCache[K comparable, V any](name string, cache *ttlcache.Cache[K, V]) {
	WatchCache(defaultCacheCollector, name, cache)
}
