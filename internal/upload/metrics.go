package upload

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts upload outcomes. Register once at startup.
type Metrics struct {
	Started   *prometheus.CounterVec
	Completed *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Bytes     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipper_uploads_started_total",
			Help: "Uploads accepted by the coordinator.",
		}, []string{"kind"}),
		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipper_uploads_completed_total",
			Help: "Uploads stored successfully.",
		}, []string{"kind"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clipper_uploads_failed_total",
			Help: "Uploads that ended in an error state.",
		}, []string{"kind"}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clipper_upload_bytes_total",
			Help: "Total bytes stored remotely.",
		}),
	}
	reg.MustRegister(m.Started, m.Completed, m.Failed, m.Bytes)
	return m
}
