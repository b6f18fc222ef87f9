// internal/service/promotion/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var couponOps = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "promotion_coupon_operations_total",
	Help: "Coupon operations by type and outcome.",
}, []string{"op", "result"})
