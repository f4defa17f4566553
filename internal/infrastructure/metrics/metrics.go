package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CodesIssued counts verification codes generated, by path ("begin" | "resend").
	CodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_registration_codes_issued_total",
		Help: "Verification codes generated for pending registrations",
	}, []string{"path"})

	// CodeDeliveryFailures counts codes the mailer could not deliver.
	CodeDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_registration_code_delivery_failures_total",
		Help: "Verification codes that could not be emailed",
	})

	// VerifyOutcomes counts code verification results by kind ("ok", "mismatch", ...).
	VerifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_registration_verify_outcomes_total",
		Help: "Verification attempts by outcome",
	}, []string{"outcome"})

	SeatsReserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exam_registration_seats_reserved_total",
		Help: "Seats reserved, by session",
	}, []string{"session"})

	SeatClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_registration_seat_claim_conflicts_total",
		Help: "Seat claims that lost a compare-and-swap race",
	})

	UnassignedRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exam_registration_unassigned_total",
		Help: "Committed registrations left without a seat",
	})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exam_registration_commit_duration_ms",
		Help:    "Latency of registration commits in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
