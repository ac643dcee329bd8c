// internal/service/pricing/domain/discount.go
package domain

import "time"

// StoreKind 区分实体商家店铺与达人（影响者）虚拟店铺。
// 折扣叠加顺序依赖这个维度：vendor 层先于 influencer 层。
type StoreKind string

const (
	StorePhysical StoreKind = "physical"
	StoreVirtual  StoreKind = "virtual"
)

// DiscountKind 是折扣规则的计算类型。
type DiscountKind string

const (
	KindPercentage     DiscountKind = "percentage"
	KindFixedAmount    DiscountKind = "fixed_amount"
	KindBuyXGetY       DiscountKind = "buy_x_get_y"
	KindBundle         DiscountKind = "bundle"
	KindBulkPricing    DiscountKind = "bulk_pricing"
	KindFlashSale      DiscountKind = "flash_sale"
	KindFirstTimeBuyer DiscountKind = "first_time_buyer"
)

// ValueKind 决定 Value 字段按百分比还是固定金额解读。
type ValueKind string

const (
	ValuePercentage ValueKind = "percentage"
	ValueFixed      ValueKind = "fixed"
)

// Scope 是折扣的适用范围。
type Scope string

const (
	ScopeProducts     Scope = "products"
	ScopeCategories   Scope = "categories"
	ScopeCollections  Scope = "collections"
	ScopeStoreWide    Scope = "store_wide"
	ScopeCombinations Scope = "combinations"
)

// Discount 是一条店铺定义的定价规则（聚合根）。
type Discount struct {
	ID        string
	StoreID   string
	StoreKind StoreKind
	Name      string

	Kind      DiscountKind
	ValueKind ValueKind
	Value     float64

	AppliesTo Scope
	TargetIDs []string

	// 约束项，零值表示未设置
	MinPurchaseAmount float64
	MinQuantity       int
	MaxDiscountAmount float64

	// buy_x_get_y 专用
	BuyQuantity int
	GetQuantity int

	StartsAt time.Time
	EndsAt   *time.Time

	UsageLimit            int
	UsageLimitPerCustomer int
	UsageCount            int

	Priority   int
	Combinable bool // 能否与其他层叠加（influencer 层要求为 true）

	AllowedCustomerIDs  []string
	ExcludedCustomerIDs []string

	// 可选的 CEL 资格表达式，针对 Fact 求值
	EligibilityRule string

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate 校验规则自身的不变量。入库前必须通过。
func (d *Discount) Validate() error {
	if d.StoreID == "" || d.Name == "" {
		return NewValidationError("discount requires store id and name")
	}
	if d.Value < 0 {
		return NewValidationError("discount value cannot be negative")
	}
	if d.ValueKind == ValuePercentage && d.Value > 100 {
		return NewValidationError("percentage discount cannot exceed 100")
	}
	if d.Kind == KindBuyXGetY && (d.BuyQuantity <= 0 || d.GetQuantity <= 0) {
		return NewValidationError("buy_x_get_y requires both buy and get quantities")
	}
	if d.EndsAt != nil && d.EndsAt.Before(d.StartsAt) {
		return NewValidationError("discount end date precedes start date")
	}
	return nil
}

// InWindow 报告 now 是否落在有效时间窗内。
func (d *Discount) InWindow(now time.Time) bool {
	if now.Before(d.StartsAt) {
		return false
	}
	if d.EndsAt != nil && now.After(*d.EndsAt) {
		return false
	}
	return true
}

// UsageExhausted 报告全局使用上限是否已耗尽。
func (d *Discount) UsageExhausted() bool {
	return d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit
}

// LiveAt 报告折扣此刻是否可参与计价（启用、在窗口内、额度未耗尽）。
func (d *Discount) LiveAt(now time.Time) bool {
	return d.Active && d.InWindow(now) && !d.UsageExhausted()
}

// AppliesToProduct 报告折扣范围是否覆盖给定商品。
// categories/collections 维度的购物车匹配是已知留白：范围值被接受，
// 但不会和购物车内容比对，行为与 store_wide 相同。
func (d *Discount) AppliesToProduct(productID string) bool {
	switch d.AppliesTo {
	case ScopeProducts, ScopeCombinations:
		for _, id := range d.TargetIDs {
			if id == productID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// AppliesToAny 报告给定商品集合中是否至少一个命中折扣范围。
func (d *Discount) AppliesToAny(productIDs []string) bool {
	if d.AppliesTo != ScopeProducts && d.AppliesTo != ScopeCombinations {
		return true
	}
	for _, id := range productIDs {
		if d.AppliesToProduct(id) {
			return true
		}
	}
	return false
}

// CustomerEligible 按黑白名单判断客户资格。
// 黑名单优先；存在白名单时必须在名单内。
func (d *Discount) CustomerEligible(customerID string) bool {
	for _, id := range d.ExcludedCustomerIDs {
		if id == customerID {
			return false
		}
	}
	if len(d.AllowedCustomerIDs) == 0 {
		return true
	}
	for _, id := range d.AllowedCustomerIDs {
		if id == customerID {
			return true
		}
	}
	return false
}
