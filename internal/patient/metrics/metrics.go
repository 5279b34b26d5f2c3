package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the patient module: lifecycle
// counters plus search latency.
type Metrics struct {
	PatientsCreated     prometheus.Counter
	PatientsSoftDeleted prometheus.Counter
	PatientsRestored    prometheus.Counter
	PatientsPurged      prometheus.Counter
	SearchDuration      prometheus.Histogram
}

// New creates a Metrics instance with all patient module metrics
// registered on the default registry.
func New() *Metrics {
	return &Metrics{
		PatientsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicus_patients_created_total",
			Help: "Total number of patient records created",
		}),
		PatientsSoftDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicus_patients_soft_deleted_total",
			Help: "Total number of patient records soft-deleted",
		}),
		PatientsRestored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicus_patients_restored_total",
			Help: "Total number of patient records restored from soft delete",
		}),
		PatientsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicus_patients_purged_total",
			Help: "Total number of patient records permanently purged",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medicus_patient_search_duration_seconds",
			Help:    "Duration of patient search store queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveSearch records the duration of a search store query. Call with
// time.Now() captured at the start of the query.
func (m *Metrics) ObserveSearch(start time.Time) {
	m.SearchDuration.Observe(time.Since(start).Seconds())
}
