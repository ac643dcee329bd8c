// internal/service/pricing/domain/coupon.go
package domain

import (
	"strings"
	"time"
)

// CouponCode 是绑定到单个折扣的可兑换码。
// 码在店铺内唯一；存储层没有唯一约束，插入前必须显式检查。
type CouponCode struct {
	ID         string
	StoreID    string
	Code       string // 已规范化（大写、去空白）
	DiscountID string
	Active     bool
	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NormalizeCode 把用户输入的券码归一化，查找和入库都用这个形式。
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CouponUsage 是一条不可变的核销记录，只增不改。
// 同一 orderID 重复记录会返回已存在的记录（幂等）。
type CouponUsage struct {
	ID             string
	CouponCodeID   string
	CustomerID     string
	OrderID        string
	DiscountAmount float64
	UsedAt         time.Time
}
