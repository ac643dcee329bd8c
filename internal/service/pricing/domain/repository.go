// internal/service/pricing/domain/repository.go
package domain

import (
	"context"
	"time"
)

// DiscountRepository 定义折扣数据的持久化接口。
// 这是领域层与基础设施层之间的“插座”。
type DiscountRepository interface {
	FindByID(ctx context.Context, id string) (*Discount, error)
	// FindLiveForProduct 返回此刻可参与计价的折扣：启用、在时间窗内、
	// 额度未耗尽、范围覆盖该商品或全店，按 priority 降序。
	FindLiveForProduct(ctx context.Context, storeID, productID string, now time.Time) ([]*Discount, error)
	Create(ctx context.Context, d *Discount) error
	SetActive(ctx context.Context, id string, active bool) error
	// IncrementUsage 做条件自增：usage_count < usage_limit 才生效，
	// 在存储层一把过，不做读后写。额度耗尽返回 ErrUsageLimitReached。
	IncrementUsage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CouponRepository 定义券码数据的持久化接口。
type CouponRepository interface {
	// FindByCode 按 (storeID, 规范化 code) 查找。缺失返回 ErrCouponNotFound。
	FindByCode(ctx context.Context, storeID, code string) (*CouponCode, error)
	ExistsCode(ctx context.Context, storeID, code string) (bool, error)
	Create(ctx context.Context, c *CouponCode) error
	IncrementUsage(ctx context.Context, id string) error
	ListByDiscount(ctx context.Context, discountID string) ([]*CouponCode, error)
	DeleteByDiscount(ctx context.Context, discountID string) error
}

// UsageLedger 记录券的核销次数：全局一份、每客户一份。
type UsageLedger interface {
	CountForCoupon(ctx context.Context, couponCodeID string) (int64, error)
	CountForCouponAndCustomer(ctx context.Context, couponCodeID, customerID string) (int64, error)
	// FindByOrder 按 (券码, 订单) 查找已有的核销记录。没有则返回 nil, nil。
	FindByOrder(ctx context.Context, couponCodeID, orderID string) (*CouponUsage, error)
	// RecordUsage 落一条核销记录。orderID 非空时按 orderID 幂等：
	// 已存在的记录原样返回，不重复计数。
	RecordUsage(ctx context.Context, usage *CouponUsage) (*CouponUsage, error)
	DeleteByCoupon(ctx context.Context, couponCodeID string) error
}

// Clock 注入时间来源，让时间窗校验在测试里可确定重放。
type Clock interface {
	Now() time.Time
}

// Fact 是自定义资格规则求值时可见的业务事实。
type Fact struct {
	CustomerID string   `json:"customerId"`
	CartTotal  float64  `json:"cartTotal"`
	Quantity   int64    `json:"quantity"`
	ProductIDs []string `json:"productIds"`
}

// RuleEngine 对折扣携带的资格表达式求值。
// 表达式本身有语法错误时应返回 error（拒绝而不是放行）。
type RuleEngine interface {
	Evaluate(ruleDefinition string, fact Fact) (bool, error)
}
