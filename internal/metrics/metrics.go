package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	InteractionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_interactions_recorded_total",
			Help: "Interactions recorded through the API",
		},
	)

	RecommendationsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_recommendations_generated_total",
			Help: "Recommendations created by generation passes",
		},
		[]string{"trigger"},
	)

	RecommendationsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_recommendations_expired_total",
			Help: "Recommendations expired because their trigger no longer holds",
		},
	)

	DuplicateChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_duplicate_checks_total",
			Help: "Duplicate checks by outcome",
		},
		[]string{"outcome"},
	)
)

func Register() {
	prometheus.MustRegister(
		InteractionsRecorded,
		RecommendationsGenerated,
		RecommendationsExpired,
		DuplicateChecks,
	)
}
