package session

import "github.com/prometheus/client_golang/prometheus"

var (
	pdusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smpp",
		Name:      "pdus_total",
		Help:      "PDUs read and written, by direction and command.",
	}, []string{"direction", "command"})

	pendingTransactions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "smpp",
		Name:      "pending_transactions",
		Help:      "Outbound requests awaiting a response.",
	})

	transactionSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smpp",
		Name:      "transaction_seconds",
		Help:      "Time from request write to response, by command.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"command"})

	sessionStates = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "smpp",
		Name:      "sessions",
		Help:      "Live sessions by state.",
	}, []string{"state"})
)

// RegisterMetrics registers the session collectors with r.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{pdusTotal, pendingTransactions, transactionSeconds, sessionStates} {
		if err := r.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

const (
	directionIn  = "in"
	directionOut = "out"
)
