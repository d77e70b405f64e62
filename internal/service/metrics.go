package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the workflow counters. A nil *Metrics disables them.
type Metrics struct {
	UploadsAccepted prometheus.Counter
	QuotaRejections prometheus.Counter
	Decisions       *prometheus.CounterVec
}

// NewMetrics creates and registers the workflow counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		UploadsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dossier_uploads_accepted_total",
			Help: "Total number of uploads recorded against document requests.",
		}),
		QuotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dossier_quota_rejections_total",
			Help: "Total number of submission batches refused or truncated by the quota rules.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dossier_upload_decisions_total",
			Help: "Total number of effective accountant decisions on uploads.",
		}, []string{"decision"}),
	}

	for _, c := range []prometheus.Collector{m.UploadsAccepted, m.QuotaRejections, m.Decisions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
