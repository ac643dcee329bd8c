// internal/service/pricing/infrastructure/mapper.go
package infrastructure

import (
	"encoding/json"

	"bazaar/internal/service/pricing/domain"
)

func marshalIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// ToDomainDiscount 把数据库模型转换为领域模型。
func ToDomainDiscount(m *DiscountModel) *domain.Discount {
	return &domain.Discount{
		ID:                    m.ID,
		StoreID:               m.StoreID,
		StoreKind:             domain.StoreKind(m.StoreKind),
		Name:                  m.Name,
		Kind:                  domain.DiscountKind(m.Kind),
		ValueKind:             domain.ValueKind(m.ValueKind),
		Value:                 m.Value,
		AppliesTo:             domain.Scope(m.AppliesTo),
		TargetIDs:             unmarshalIDs(m.TargetIDs),
		MinPurchaseAmount:     m.MinPurchaseAmount,
		MinQuantity:           m.MinQuantity,
		MaxDiscountAmount:     m.MaxDiscountAmount,
		BuyQuantity:           m.BuyQuantity,
		GetQuantity:           m.GetQuantity,
		StartsAt:              m.StartsAt,
		EndsAt:                m.EndsAt,
		UsageLimit:            m.UsageLimit,
		UsageLimitPerCustomer: m.UsageLimitPerCustomer,
		UsageCount:            m.UsageCount,
		Priority:              m.Priority,
		Combinable:            m.Combinable,
		AllowedCustomerIDs:    unmarshalIDs(m.AllowedCustomerIDs),
		ExcludedCustomerIDs:   unmarshalIDs(m.ExcludedCustomerIDs),
		EligibilityRule:       m.EligibilityRule,
		Active:                m.Active,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// FromDomainDiscount 把领域模型转换为数据库模型。
func FromDomainDiscount(d *domain.Discount) *DiscountModel {
	return &DiscountModel{
		ID:                    d.ID,
		StoreID:               d.StoreID,
		StoreKind:             string(d.StoreKind),
		Name:                  d.Name,
		Kind:                  string(d.Kind),
		ValueKind:             string(d.ValueKind),
		Value:                 d.Value,
		AppliesTo:             string(d.AppliesTo),
		TargetIDs:             marshalIDs(d.TargetIDs),
		MinPurchaseAmount:     d.MinPurchaseAmount,
		MinQuantity:           d.MinQuantity,
		MaxDiscountAmount:     d.MaxDiscountAmount,
		BuyQuantity:           d.BuyQuantity,
		GetQuantity:           d.GetQuantity,
		StartsAt:              d.StartsAt,
		EndsAt:                d.EndsAt,
		UsageLimit:            d.UsageLimit,
		UsageLimitPerCustomer: d.UsageLimitPerCustomer,
		UsageCount:            d.UsageCount,
		Priority:              d.Priority,
		Combinable:            d.Combinable,
		AllowedCustomerIDs:    marshalIDs(d.AllowedCustomerIDs),
		ExcludedCustomerIDs:   marshalIDs(d.ExcludedCustomerIDs),
		EligibilityRule:       d.EligibilityRule,
		Active:                d.Active,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// ToDomainCoupon 把券码模型转换为领域模型。
func ToDomainCoupon(m *CouponCodeModel) *domain.CouponCode {
	return &domain.CouponCode{
		ID:         m.ID,
		StoreID:    m.StoreID,
		Code:       m.Code,
		DiscountID: m.DiscountID,
		Active:     m.Active,
		UsageCount: m.UsageCount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomainCoupon 把券码领域模型转换为数据库模型。
func FromDomainCoupon(c *domain.CouponCode) *CouponCodeModel {
	return &CouponCodeModel{
		ID:         c.ID,
		StoreID:    c.StoreID,
		Code:       c.Code,
		DiscountID: c.DiscountID,
		Active:     c.Active,
		UsageCount: c.UsageCount,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// ToDomainUsage 把核销流水模型转换为领域模型。
func ToDomainUsage(m *CouponUsageModel) *domain.CouponUsage {
	return &domain.CouponUsage{
		ID:             m.ID,
		CouponCodeID:   m.CouponCodeID,
		CustomerID:     m.CustomerID,
		OrderID:        m.OrderID,
		DiscountAmount: m.DiscountAmount,
		UsedAt:         m.UsedAt,
	}
}

// FromDomainUsage 把核销领域模型转换为数据库模型。
func FromDomainUsage(u *domain.CouponUsage) *CouponUsageModel {
	return &CouponUsageModel{
		ID:             u.ID,
		CouponCodeID:   u.CouponCodeID,
		CustomerID:     u.CustomerID,
		OrderID:        u.OrderID,
		DiscountAmount: u.DiscountAmount,
		UsedAt:         u.UsedAt,
	}
}
