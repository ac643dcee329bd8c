// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 核心业务指标。所有服务共享同一个默认 registry，
// 每个 cmd 的 main 负责挂载 /metrics。
var (
	CouponValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_coupon_validations_total",
		Help: "Coupon validations by outcome (ok or the failing rule).",
	}, []string{"outcome"})

	CouponRedemptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_coupon_redemptions_total",
		Help: "Successfully recorded coupon redemptions.",
	})

	PriceQuotes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_price_quotes_total",
		Help: "Price breakdown computations served.",
	})

	SagaRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_provisioning_rollbacks_total",
		Help: "Provisioning sagas that triggered compensation.",
	})

	OrphanedResources = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_provisioning_orphaned_resources_total",
		Help: "Tracked resources whose rollback deletion failed and needs manual reconcile.",
	})
)
