package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusController_ServesCacheMetrics(t *testing.T) {
	cache := ttlcache.New[string, int](ttlcache.WithTTL[string, int](time.Minute))
	cache.Set("000P", 1, ttlcache.DefaultTTL)
	cache.Get("000P")

	collector := NewCacheCollector()
	WatchCache(collector, "program", cache)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	r := mux.NewRouter()
	newPrometheusController("", reg).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hmis_cache_hits_total{cache="program"} 1`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, DefaultPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
