// internal/service/pricing/infrastructure/gorm_model.go
package infrastructure

import "time"

// DiscountModel 是折扣的数据库模型。字符串集合按 JSON 存储，
// 映射细节全部收在 mapper 里，领域层看不到 gorm。
type DiscountModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	StoreID   string `gorm:"size:36;index"`
	StoreKind string `gorm:"size:16"`
	Name      string `gorm:"size:255"`

	Kind      string `gorm:"size:32"`
	ValueKind string `gorm:"size:16"`
	Value     float64

	AppliesTo string `gorm:"size:32"`
	TargetIDs string `gorm:"type:text"` // JSON array

	MinPurchaseAmount float64
	MinQuantity       int
	MaxDiscountAmount float64

	BuyQuantity int
	GetQuantity int

	StartsAt time.Time
	EndsAt   *time.Time

	UsageLimit            int
	UsageLimitPerCustomer int
	UsageCount            int

	Priority   int
	Combinable bool

	AllowedCustomerIDs  string `gorm:"type:text"` // JSON array
	ExcludedCustomerIDs string `gorm:"type:text"` // JSON array

	EligibilityRule string `gorm:"type:text"`

	Active    bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DiscountModel) TableName() string { return "discounts" }

// CouponCodeModel 是券码的数据库模型。
// (store_id, code) 只建普通索引：唯一性由应用层持锁查重保证。
type CouponCodeModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	StoreID    string `gorm:"size:36;index:idx_store_code"`
	Code       string `gorm:"size:64;index:idx_store_code"`
	DiscountID string `gorm:"size:36;index"`
	Active     bool
	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CouponCodeModel) TableName() string { return "coupon_codes" }

// CouponUsageModel 是核销流水，只插入不更新。
type CouponUsageModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	CouponCodeID   string `gorm:"size:36;index:idx_coupon_customer"`
	CustomerID     string `gorm:"size:36;index:idx_coupon_customer"`
	OrderID        string `gorm:"size:36;index"`
	DiscountAmount float64
	UsedAt         time.Time
}

func (CouponUsageModel) TableName() string { return "coupon_usages" }
