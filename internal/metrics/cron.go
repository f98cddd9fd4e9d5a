package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records runs of background jobs (cron scans, queue consumers).
type JobMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job executions by outcome.",
	}, []string{"job", "resultado"})
	reg.MustRegister(duration, total)
	return &JobMetrics{duration: duration, total: total}
}

// Observe records one run of job, failed when err is non-nil.
func (j *JobMetrics) Observe(job string, inicio time.Time, err error) {
	if j == nil || j.duration == nil {
		return
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(time.Since(inicio).Seconds())
	resultado := ResultadoOK
	if err != nil {
		resultado = ResultadoErro
	}
	j.total.WithLabelValues(normalizeLabel(job), resultado).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
