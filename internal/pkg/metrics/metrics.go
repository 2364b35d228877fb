package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodesIssued counts verification code issuance by purpose and result (ok|error).
	CodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_verification_codes_issued_total",
			Help: "Total number of verification codes issued",
		},
		[]string{"purpose", "result"},
	)

	// CodesRedeemed counts redemption attempts by purpose and result (valid|invalid).
	CodesRedeemed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_verification_codes_redeemed_total",
			Help: "Total number of verification code redemption attempts",
		},
		[]string{"purpose", "result"},
	)

	// AuthAttempts records login attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	MailSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_mail_sent_total",
			Help: "Total number of outbound mails handed to a transport",
		},
		[]string{"transport", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Result maps an error to the ok|error label used by the counters above.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
