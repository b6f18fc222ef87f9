// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	orderCreations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_creations_total",
		Help: "下单请求按结果计数",
	}, []string{"result"})

	orderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "订单状态流转按目标状态计数",
	}, []string{"to"})

	sweeperRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sweeper_processed_total",
		Help: "后台扫描任务处理的订单数",
	}, []string{"sweeper"})

	compensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_compensation_failures_total",
		Help: "补偿动作失败次数，需要人工介入",
	})
)
