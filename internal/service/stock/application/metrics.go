// internal/service/stock/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lockResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_lock_requests_total",
		Help: "Outcome of stock lock requests.",
	}, []string{"result"}) // locked / insufficient / contention / error

	ledgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_ledger_mutations_total",
		Help: "Successful ledger mutations by operation.",
	}, []string{"op"})

	invariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_invariant_violations_total",
		Help: "Ledger guard failures that work-order discipline should have made impossible.",
	})
)
