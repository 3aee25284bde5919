// Package metrics exposes build and scheduler metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quire"

// Build outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder collects build metrics. It satisfies the scheduler's observer
// interface.
type Recorder struct {
	builds        *prom.CounterVec
	buildDuration prom.Histogram
	pages         prom.Gauge
	assets        prom.Gauge
	lastSuccess   prom.Gauge
	throttled     prom.Counter
}

// New creates a Recorder and registers its collectors with reg. A nil reg
// gets a fresh private registry.
func New(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		builds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Build passes by outcome",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of full build passes",
			Buckets:   prom.DefBuckets,
		}),
		pages: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "site_pages",
			Help:      "Pages written by the last successful build",
		}),
		assets: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "site_assets",
			Help:      "Assets copied by the last successful build",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build",
		}),
		throttled: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_throttled_total",
			Help:      "Change events dropped because a build finished too recently",
		}),
	}
	reg.MustRegister(r.builds, r.buildDuration, r.pages, r.assets, r.lastSuccess, r.throttled)
	return r
}

// RebuildFinished records the outcome and duration of a build pass.
func (r *Recorder) RebuildFinished(d time.Duration, err error) {
	r.buildDuration.Observe(d.Seconds())
	if err != nil {
		r.builds.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	r.builds.WithLabelValues(OutcomeSuccess).Inc()
	r.lastSuccess.SetToCurrentTime()
}

// EventThrottled counts a change event dropped by the throttle.
func (r *Recorder) EventThrottled() {
	r.throttled.Inc()
}

// SetSite records the size of the site produced by the last successful build.
func (r *Recorder) SetSite(pages, assets int) {
	r.pages.Set(float64(pages))
	r.assets.Set(float64(assets))
}

// HTTPHandler returns a handler serving the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
