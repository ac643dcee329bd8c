// internal/service/pricing/port/ports.go
package port

import (
	"context"
	"time"
)

// RedemptionGuard 是核销额度的原子闸门。
// Acquire 在一次往返里完成“检查 + 占位”，两个并发请求在额度边缘
// 不可能都通过；失败路径用 Release 归还占位。
type RedemptionGuard interface {
	Acquire(ctx context.Context, couponCodeID, customerID string, globalLimit, perCustomerLimit int, seedGlobal, seedCustomer int64) error
	Release(ctx context.Context, couponCodeID, customerID string) error
}

// CommissionService 提供分佣金额。对本服务是不透明输入，缺省实现返回 0。
type CommissionService interface {
	CommissionFor(ctx context.Context, productID string, price float64) (float64, error)
}

// RedemptionEvent 是核销成功后对外广播的事件。
type RedemptionEvent struct {
	EventID      string    `json:"eventId"`
	CouponCodeID string    `json:"couponCodeId"`
	Code         string    `json:"code"`
	StoreID      string    `json:"storeId"`
	CustomerID   string    `json:"customerId"`
	OrderID      string    `json:"orderId,omitempty"`
	Amount       float64   `json:"amount"`
	RedeemedAt   time.Time `json:"redeemedAt"`
}

// RedemptionEventProducer 发布核销事件。发布失败不回滚核销，属非关键路径。
type RedemptionEventProducer interface {
	PublishRedemption(ctx context.Context, ev *RedemptionEvent) error
}

// CodeLocker 序列化同一作用域内的写入。
// 券码创建前的唯一性检查依赖它：存储层没有唯一约束。
type CodeLocker interface {
	WithLock(scope string, fn func() error) error
}
