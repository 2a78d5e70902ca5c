package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an HTTP handler exposing the pipeline metrics in the
// standard Prometheus exposition format, typically mounted at "/metrics".
//
//	pipeline := metrics.NewPipeline(&cfg.Metrics, nil)
//	http.Handle("/metrics", pipeline.Handler())
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(
		p.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		},
	)
}
