package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	registry      *prom.Registry
	stageDuration *prom.HistogramVec
	jobDuration   prom.Histogram
	stageResults  *prom.CounterVec
	jobOutcome    *prom.CounterVec
	writeRetries  prom.Counter
	assets        *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "homeshow",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual generation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.jobDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "homeshow",
			Name:      "job_duration_seconds",
			Help:      "Total generation job duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "homeshow",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.jobOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "homeshow",
			Name:      "job_outcomes_total",
			Help:      "Generation job outcomes by final status",
		}, []string{"outcome"})
		pr.writeRetries = prom.NewCounter(prom.CounterOpts{
			Namespace: "homeshow",
			Name:      "write_retries_total",
			Help:      "Transient write failures retried during staging",
		})
		pr.assets = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "homeshow",
			Name:      "assets_total",
			Help:      "Media assets handled by the pipeline",
		}, []string{"disposition"}) // processed|deduplicated
		reg.MustRegister(pr.stageDuration, pr.jobDuration, pr.stageResults, pr.jobOutcome, pr.writeRetries, pr.assets)
	})
	return pr
}

// Handler exposes the registry over HTTP for scraping.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveJobDuration(d time.Duration) {
	if p == nil || p.jobDuration == nil {
		return
	}
	p.jobDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncJobOutcome(outcome string) {
	if p == nil || p.jobOutcome == nil {
		return
	}
	p.jobOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncWriteRetry() {
	if p == nil || p.writeRetries == nil {
		return
	}
	p.writeRetries.Inc()
}

func (p *PrometheusRecorder) IncAssetsProcessed(n int) {
	if p == nil || p.assets == nil {
		return
	}
	p.assets.WithLabelValues("processed").Add(float64(n))
}

func (p *PrometheusRecorder) IncAssetsDeduplicated(n int) {
	if p == nil || p.assets == nil {
		return
	}
	p.assets.WithLabelValues("deduplicated").Add(float64(n))
}
