// internal/service/pricing/domain/engine_test.go
package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDiscountAmount_Percentage(t *testing.T) {
	d := &Discount{Kind: KindPercentage, ValueKind: ValuePercentage, Value: 10}
	assert.InDelta(t, 10.0, DiscountAmount(d, 100, 1), 1e-9)
	assert.InDelta(t, 25.0, DiscountAmount(d, 250, 3), 1e-9)
}

func TestDiscountAmount_FixedAmount(t *testing.T) {
	// 固定金额是一口价，与价格和数量无关
	d := &Discount{Kind: KindFixedAmount, ValueKind: ValueFixed, Value: 20}
	assert.InDelta(t, 20.0, DiscountAmount(d, 100, 1), 1e-9)
	assert.InDelta(t, 20.0, DiscountAmount(d, 999, 7), 1e-9)
}

func TestDiscountAmount_BuyXGetY(t *testing.T) {
	d := &Discount{Kind: KindBuyXGetY, BuyQuantity: 3, GetQuantity: 1}

	// 9 件总价 90：3 组，免 3 件，每件单价 10 → 抵 30
	assert.InDelta(t, 30.0, DiscountAmount(d, 90, 9), 1e-9)

	// 不满一组（买 2 件）不抵扣
	assert.Zero(t, DiscountAmount(d, 20, 2))

	// 7 件只算完整的 2 组
	assert.InDelta(t, 20.0, DiscountAmount(d, 70, 7), 1e-9)
}

func TestDiscountAmount_BulkPricing(t *testing.T) {
	pct := &Discount{Kind: KindBulkPricing, ValueKind: ValuePercentage, Value: 15, MinQuantity: 10}
	assert.Zero(t, DiscountAmount(pct, 500, 9), "below min quantity")
	assert.InDelta(t, 75.0, DiscountAmount(pct, 500, 10), 1e-9)

	perUnit := &Discount{Kind: KindBulkPricing, ValueKind: ValueFixed, Value: 2, MinQuantity: 5}
	assert.InDelta(t, 12.0, DiscountAmount(perUnit, 300, 6), 1e-9)
}

func TestDiscountAmount_CapAndFloor(t *testing.T) {
	capped := &Discount{Kind: KindPercentage, ValueKind: ValuePercentage, Value: 50, MaxDiscountAmount: 30}
	assert.InDelta(t, 30.0, DiscountAmount(capped, 100, 1), 1e-9)

	// 固定金额超过价格时不在这里截断，层叠加后由计价器保证非负
	fixed := &Discount{Kind: KindFixedAmount, ValueKind: ValueFixed, Value: 200}
	assert.InDelta(t, 200.0, DiscountAmount(fixed, 100, 1), 1e-9)
}

func TestDiscountValidate(t *testing.T) {
	base := func() *Discount {
		return &Discount{StoreID: "s1", Name: "promo", ValueKind: ValuePercentage, Value: 10}
	}

	assert.NoError(t, base().Validate())

	d := base()
	d.Value = 150
	assert.Error(t, d.Validate(), "percentage above 100")

	d = base()
	d.Value = -1
	assert.Error(t, d.Validate())

	d = base()
	d.Kind = KindBuyXGetY
	assert.Error(t, d.Validate(), "bxgy without quantities")

	d = base()
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	d.StartsAt, d.EndsAt = start, &end
	assert.Error(t, d.Validate(), "end before start")
}

func TestDiscountLiveAt(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(24 * time.Hour)

	d := &Discount{Active: true, StartsAt: now.Add(-time.Hour), EndsAt: &end, UsageLimit: 5, UsageCount: 4}
	assert.True(t, d.LiveAt(now))

	d.UsageCount = 5
	assert.False(t, d.LiveAt(now), "usage exhausted")

	d.UsageCount = 0
	d.Active = false
	assert.False(t, d.LiveAt(now))

	d.Active = true
	assert.False(t, d.LiveAt(now.Add(48*time.Hour)), "past end")
	assert.False(t, d.LiveAt(d.StartsAt.Add(-time.Minute)), "before start")
}

func TestCustomerEligible(t *testing.T) {
	d := &Discount{ExcludedCustomerIDs: []string{"bad"}}
	assert.False(t, d.CustomerEligible("bad"))
	assert.True(t, d.CustomerEligible("anyone"))

	d = &Discount{AllowedCustomerIDs: []string{"vip"}}
	assert.True(t, d.CustomerEligible("vip"))
	assert.False(t, d.CustomerEligible("regular"))

	// 黑名单优先于白名单
	d = &Discount{AllowedCustomerIDs: []string{"x"}, ExcludedCustomerIDs: []string{"x"}}
	assert.False(t, d.CustomerEligible("x"))
}

func TestAppliesToProduct(t *testing.T) {
	scoped := &Discount{AppliesTo: ScopeProducts, TargetIDs: []string{"p1", "p2"}}
	assert.True(t, scoped.AppliesToProduct("p1"))
	assert.False(t, scoped.AppliesToProduct("p3"))
	assert.True(t, scoped.AppliesToAny([]string{"p3", "p2"}))
	assert.False(t, scoped.AppliesToAny([]string{"p3"}))

	// categories/collections 不做购物车匹配，等同全店
	wide := &Discount{AppliesTo: ScopeCategories, TargetIDs: []string{"c1"}}
	assert.True(t, wide.AppliesToProduct("anything"))

	storeWide := &Discount{AppliesTo: ScopeStoreWide}
	assert.True(t, storeWide.AppliesToProduct("anything"))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SUMMER10", NormalizeCode("  summer10 "))
	assert.Equal(t, "SUMMER10", NormalizeCode("SUMMER10"))
}
