package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for processing runs. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	rendersTotal  *prometheus.CounterVec
	phaseSeconds  *prometheus.HistogramVec
	imagesTotal   *prometheus.CounterVec
	fallbackTotal *prometheus.CounterVec
	activeJobs    prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	rendersTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcut_renders_total",
		Help: "Processing runs by outcome",
	}, []string{"status"})
	phaseSeconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelcut_phase_seconds",
		Help:    "Wall time per pipeline phase",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"phase"})
	imagesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcut_images_total",
		Help: "Image inserts by result",
	}, []string{"result"})
	fallbackTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reelcut_fallbacks_total",
		Help: "Collaborator failures replaced by conservative defaults",
	}, []string{"kind"})
	activeJobs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reelcut_active_jobs",
		Help: "Videos currently being processed",
	})

	registry.MustRegister(rendersTotal, phaseSeconds, imagesTotal, fallbackTotal, activeJobs)

	return &Metrics{
		registry:      registry,
		rendersTotal:  rendersTotal,
		phaseSeconds:  phaseSeconds,
		imagesTotal:   imagesTotal,
		fallbackTotal: fallbackTotal,
		activeJobs:    activeJobs,
	}
}

// IncRenders counts a finished run; status is "ok" or "error".
func (m *Metrics) IncRenders(status string) {
	if m == nil {
		return
	}
	m.rendersTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

// AddImages counts image inserts; result is "rendered", "failed" or "skipped".
func (m *Metrics) AddImages(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.imagesTotal.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) AddFallbacks(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.fallbackTotal.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.activeJobs.Inc()
}

func (m *Metrics) JobFinished() {
	if m == nil {
		return
	}
	m.activeJobs.Dec()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
