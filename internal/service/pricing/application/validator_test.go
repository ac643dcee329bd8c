// internal/service/pricing/application/validator_test.go
package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"bazaar/internal/service/pricing/domain"
)

func validatorFixture(d *domain.Discount, c *domain.CouponCode) (*CouponValidator, *memLedger) {
	ledger := &memLedger{}
	v := NewCouponValidator(
		newMemDiscountRepo(d),
		newMemCouponRepo(c),
		ledger,
		allowAllRules{},
		fixedClock{testNow},
		otel.Tracer("test"),
	)
	return v, ledger
}

func liveDiscount() *domain.Discount {
	end := testNow.Add(30 * 24 * time.Hour)
	return &domain.Discount{
		ID:        "d1",
		StoreID:   "s1",
		StoreKind: domain.StorePhysical,
		Name:      "summer sale",
		Kind:      domain.KindPercentage,
		ValueKind: domain.ValuePercentage,
		Value:     10,
		AppliesTo: domain.ScopeStoreWide,
		StartsAt:  testNow.Add(-time.Hour),
		EndsAt:    &end,
		Active:    true,
	}
}

func activeCoupon() *domain.CouponCode {
	return &domain.CouponCode{ID: "c1", StoreID: "s1", Code: "SUMMER10", DiscountID: "d1", Active: true}
}

func TestValidate_HappyPath(t *testing.T) {
	v, _ := validatorFixture(liveDiscount(), activeCoupon())

	result, err := v.Validate(context.Background(), ValidationInput{
		StoreID: "s1", Code: " summer10 ", CustomerID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "d1", result.Discount.ID)
	assert.Equal(t, "c1", result.Coupon.ID)
}

func TestValidate_UnknownCode(t *testing.T) {
	v, _ := validatorFixture(liveDiscount(), activeCoupon())

	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
}

func TestValidate_InactiveWinsOverExpired(t *testing.T) {
	// 状态机顺序固定：券停用的检查先于时间窗，
	// 即使折扣同时也过期了，返回的必须是 inactive。
	d := liveDiscount()
	end := testNow.Add(-time.Hour)
	d.EndsAt = &end
	c := activeCoupon()
	c.Active = false

	v, _ := validatorFixture(d, c)
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.ErrorIs(t, err, domain.ErrCouponInactive)
}

func TestValidate_DateWindow(t *testing.T) {
	notStarted := liveDiscount()
	notStarted.StartsAt = testNow.Add(time.Hour)
	v, _ := validatorFixture(notStarted, activeCoupon())
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.ErrorIs(t, err, domain.ErrCouponNotStarted)

	expired := liveDiscount()
	end := testNow.Add(-time.Minute)
	expired.EndsAt = &end
	v, _ = validatorFixture(expired, activeCoupon())
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.ErrorIs(t, err, domain.ErrCouponExpired)

	// 无截止时间的券长期有效
	open := liveDiscount()
	open.EndsAt = nil
	v, _ = validatorFixture(open, activeCoupon())
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.NoError(t, err)
}

func TestValidate_GlobalUsageLimit(t *testing.T) {
	d := liveDiscount()
	d.UsageLimit = 5
	d.UsageCount = 5

	v, _ := validatorFixture(d, activeCoupon())
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.ErrorIs(t, err, domain.ErrUsageLimitReached)

	// 边界：4/5 还能用
	d.UsageCount = 4
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.NoError(t, err)
}

func TestValidate_PerCustomerLimit(t *testing.T) {
	d := liveDiscount()
	d.UsageLimitPerCustomer = 1

	v, ledger := validatorFixture(d, activeCoupon())
	_, err := ledger.RecordUsage(context.Background(), &domain.CouponUsage{
		ID: "u-1", CouponCodeID: "c1", CustomerID: "u1", OrderID: "o1",
	})
	assert.NoError(t, err)

	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrUsageLimitReached)

	// 别的客户不受影响
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "u2"})
	assert.NoError(t, err)

	// 匿名校验跳过每客户限次
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.NoError(t, err)
}

func TestValidate_CustomerEligibility(t *testing.T) {
	d := liveDiscount()
	d.AllowedCustomerIDs = []string{"vip"}

	v, _ := validatorFixture(d, activeCoupon())
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "regular"})
	assert.ErrorIs(t, err, domain.ErrCustomerNotEligible)

	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "vip"})
	assert.NoError(t, err)
}

func TestValidate_CustomRule(t *testing.T) {
	d := liveDiscount()
	d.EligibilityRule = `cartTotal >= 100.0`

	coupon := activeCoupon()
	v := NewCouponValidator(
		newMemDiscountRepo(d), newMemCouponRepo(coupon), &memLedger{},
		denyAllRules{}, fixedClock{testNow}, otel.Tracer("test"),
	)
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "u1"})
	assert.ErrorIs(t, err, domain.ErrCustomerNotEligible)

	// 规则引擎未接入时跳过该步骤
	v = NewCouponValidator(
		newMemDiscountRepo(d), newMemCouponRepo(coupon), &memLedger{},
		nil, fixedClock{testNow}, otel.Tracer("test"),
	)
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CustomerID: "u1"})
	assert.NoError(t, err)
}

func TestValidate_MinimumPurchase(t *testing.T) {
	d := liveDiscount()
	d.MinPurchaseAmount = 100

	v, _ := validatorFixture(d, activeCoupon())

	below := 99.99
	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CartTotal: &below})
	assert.ErrorIs(t, err, domain.ErrBelowMinimumPurchase)

	exact := 100.0
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", CartTotal: &exact})
	assert.NoError(t, err)

	// 未提供购物车总额时跳过该检查
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.NoError(t, err)
}

func TestValidate_ProductApplicability(t *testing.T) {
	d := liveDiscount()
	d.AppliesTo = domain.ScopeProducts
	d.TargetIDs = []string{"p1"}

	v, _ := validatorFixture(d, activeCoupon())

	_, err := v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", ProductIDs: []string{"p2", "p3"}})
	assert.ErrorIs(t, err, domain.ErrCouponNotApplicable)

	// 命中一个就放行
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10", ProductIDs: []string{"p2", "p1"}})
	assert.NoError(t, err)

	// 未提供商品列表时跳过该检查
	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "SUMMER10"})
	assert.NoError(t, err)
}

func TestValidate_RequiresStoreAndCode(t *testing.T) {
	v, _ := validatorFixture(liveDiscount(), activeCoupon())

	_, err := v.Validate(context.Background(), ValidationInput{Code: "SUMMER10"})
	assert.Error(t, err)

	_, err = v.Validate(context.Background(), ValidationInput{StoreID: "s1", Code: "   "})
	assert.Error(t, err)
}
