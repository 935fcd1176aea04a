package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hmis-dev/hmis-sdk/pkg/application"
)

const DefaultPath = "/debug/prometheus"

// PrometheusController serves the default registry, which also carries the
// authz decision counters and the collector RegisterCache feeds.
type PrometheusController struct {
	path     string
	gatherer prometheus.Gatherer
}

func NewPrometheusController(path string) application.Controller {
	return newPrometheusController(path, prometheus.DefaultGatherer)
}

func newPrometheusController(path string, g prometheus.Gatherer) *PrometheusController {
	if path == "" {
		path = DefaultPath
	}
	return &PrometheusController{path: path, gatherer: g}
}

func (c *PrometheusController) Key() string {
	return "metrics"
}

func (c *PrometheusController) Register(r *mux.Router) {
	h := promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
	r.Handle(c.path, h).Methods(http.MethodGet)
}
