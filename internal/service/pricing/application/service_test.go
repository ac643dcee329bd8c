// internal/service/pricing/application/service_test.go
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

type serviceFixture struct {
	service   *PricingService
	discounts *memDiscountRepo
	coupons   *memCouponRepo
	ledger    *memLedger
	guard     *fakeGuard
	events    *fakeEvents
}

func newServiceFixture(ds []*domain.Discount, cs []*domain.CouponCode) *serviceFixture {
	tracer := otel.Tracer("test")
	discounts := newMemDiscountRepo(ds...)
	coupons := newMemCouponRepo(cs...)
	ledger := &memLedger{}
	guard := &fakeGuard{}
	events := &fakeEvents{}
	clk := fixedClock{testNow}

	validator := NewCouponValidator(discounts, coupons, ledger, allowAllRules{}, clk, tracer)
	calculator := NewPriceCalculator(discounts, clk, tracer)
	service := NewPricingService(
		validator, calculator,
		discounts, coupons, ledger, clk,
		guard, staticCommission{}, events, inlineLocker{},
		tracer,
	)
	return &serviceFixture{service: service, discounts: discounts, coupons: coupons, ledger: ledger, guard: guard, events: events}
}

func redeemFixture() *serviceFixture {
	end := testNow.Add(30 * 24 * time.Hour)
	d := &domain.Discount{
		ID: "d1", StoreID: "s1", StoreKind: domain.StorePhysical, Name: "ten off",
		Kind: domain.KindFixedAmount, ValueKind: domain.ValueFixed, Value: 10,
		AppliesTo: domain.ScopeStoreWide,
		StartsAt:  testNow.Add(-time.Hour), EndsAt: &end,
		UsageLimit: 5, Active: true,
	}
	c := &domain.CouponCode{ID: "c1", StoreID: "s1", Code: "TENOFF", DiscountID: "d1", Active: true}
	return newServiceFixture([]*domain.Discount{d}, []*domain.CouponCode{c})
}

func TestRedeemCoupon_HappyPath(t *testing.T) {
	f := redeemFixture()

	resp, err := f.service.RedeemCoupon(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "tenoff", CustomerID: "u1", OrderID: "o1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.UsageID)

	// 券作为折扣层之上的最后一层：折扣折后价 90（ten off 是店内唯一折扣，
	// 同时作为 vendor 层生效），券层再抵 10 → 80
	require.NotNil(t, resp.Breakdown)
	assert.InDelta(t, 10.0, resp.Breakdown.CouponDiscount, 1e-9)
	assert.InDelta(t, 80.0, resp.Breakdown.FinalPrice, 1e-9)

	// 额度占位成功且未归还；事件已广播；券/折扣计数已自增
	assert.Equal(t, 1, f.guard.acquired)
	assert.Zero(t, f.guard.released)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, "c1", f.events.events[0].CouponCodeID)

	d, _ := f.discounts.FindByID(context.Background(), "d1")
	assert.Equal(t, 1, d.UsageCount)

	count, _ := f.ledger.CountForCoupon(context.Background(), "c1")
	assert.EqualValues(t, 1, count)
}

func TestRedeemCoupon_IdempotentOnOrderID(t *testing.T) {
	f := redeemFixture()
	req := &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", CustomerID: "u1", OrderID: "o1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	}

	first, err := f.service.RedeemCoupon(context.Background(), req)
	require.NoError(t, err)
	second, err := f.service.RedeemCoupon(context.Background(), req)
	require.NoError(t, err)

	// 同一 orderID 返回同一条核销记录，账本不会翻倍
	assert.Equal(t, first.UsageID, second.UsageID)
	count, _ := f.ledger.CountForCoupon(context.Background(), "c1")
	assert.EqualValues(t, 1, count)

	// 重试也不烧真实额度：闸门只占一格，计数器只加一次，事件只发一次
	assert.Equal(t, 1, f.guard.acquired)
	assert.Zero(t, f.guard.released)
	d, err := f.discounts.FindByID(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.UsageCount)
	assert.Len(t, f.events.events, 1)

	// 重放的响应仍带完整的价格分解
	require.NotNil(t, second.Breakdown)
	assert.Equal(t, first.Breakdown.FinalPrice, second.Breakdown.FinalPrice)
}

func TestRedeemCoupon_ReplayAfterLedgerRace(t *testing.T) {
	// 模拟并发重试挤过查重的情况：账本里已有这笔订单的记录，
	// 但调用方仍旧走完了占额度的路径。占到的那一格必须被归还。
	f := redeemFixture()
	f.ledger.usages = append(f.ledger.usages, &domain.CouponUsage{
		ID: "u-prior", CouponCodeID: "c1", CustomerID: "u1", OrderID: "o1",
		DiscountAmount: 10, UsedAt: testNow,
	})

	resp, err := f.service.finishRedemption(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", CustomerID: "u1", OrderID: "o1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	}, mustFind(t, f.discounts, "d1"), mustFindCoupon(t, f.coupons, "s1", "TENOFF"))
	require.NoError(t, err)

	assert.Equal(t, "u-prior", resp.UsageID)
	assert.Equal(t, 1, f.guard.released)
	d, _ := f.discounts.FindByID(context.Background(), "d1")
	assert.Zero(t, d.UsageCount)
	assert.Empty(t, f.events.events)
}

func mustFind(t *testing.T, r *memDiscountRepo, id string) *domain.Discount {
	t.Helper()
	d, err := r.FindByID(context.Background(), id)
	require.NoError(t, err)
	return d
}

func mustFindCoupon(t *testing.T, r *memCouponRepo, storeID, code string) *domain.CouponCode {
	t.Helper()
	c, err := r.FindByCode(context.Background(), storeID, code)
	require.NoError(t, err)
	return c
}

func TestRedeemCoupon_GuardDenied(t *testing.T) {
	f := redeemFixture()
	f.guard.denyErr = domain.ErrUsageLimitReached

	_, err := f.service.RedeemCoupon(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", CustomerID: "u1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	})
	assert.ErrorIs(t, err, domain.ErrUsageLimitReached)

	// 闸门拒绝时不落账、不发事件
	count, _ := f.ledger.CountForCoupon(context.Background(), "c1")
	assert.Zero(t, count)
	assert.Empty(t, f.events.events)
}

func TestRedeemCoupon_RequiresCustomer(t *testing.T) {
	f := redeemFixture()
	_, err := f.service.RedeemCoupon(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", ProductID: "p1", BasePrice: 100, Quantity: 1,
	})
	assert.Error(t, err)
	assert.Zero(t, f.guard.acquired)
}

func TestRedeemCoupon_EventFailureDoesNotFailRedemption(t *testing.T) {
	f := redeemFixture()
	f.events.err = assert.AnError

	resp, err := f.service.RedeemCoupon(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", CustomerID: "u1", OrderID: "o1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestCreateCouponCode(t *testing.T) {
	f := redeemFixture()

	resp, err := f.service.CreateCouponCode(context.Background(), &CreateCouponCodeRequest{
		StoreID: "s1", Code: " spring20 ", DiscountID: "d1",
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING20", resp.Code)

	// 店铺内重复创建被拒绝
	_, err = f.service.CreateCouponCode(context.Background(), &CreateCouponCodeRequest{
		StoreID: "s1", Code: "SPRING20", DiscountID: "d1",
	})
	assert.ErrorIs(t, err, domain.ErrCodeAlreadyExists)

	// 未知折扣被拒绝
	_, err = f.service.CreateCouponCode(context.Background(), &CreateCouponCodeRequest{
		StoreID: "s1", Code: "OTHER", DiscountID: "missing",
	})
	assert.ErrorIs(t, err, domain.ErrDiscountNotFound)
}

func TestCreateDiscount_Validates(t *testing.T) {
	f := redeemFixture()

	err := f.service.CreateDiscount(context.Background(), &domain.Discount{
		StoreID: "s1", Name: "bad", ValueKind: domain.ValuePercentage, Value: 120,
	})
	assert.Error(t, err)

	d := &domain.Discount{
		StoreID: "s1", Name: "good", Kind: domain.KindPercentage,
		ValueKind: domain.ValuePercentage, Value: 15, Active: true,
	}
	require.NoError(t, f.service.CreateDiscount(context.Background(), d))
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, testNow, d.CreatedAt)
}

func TestDeleteDiscount_Cascades(t *testing.T) {
	f := redeemFixture()

	// 核销一次让账本里有记录
	_, err := f.service.RedeemCoupon(context.Background(), &RedeemCouponRequest{
		StoreID: "s1", Code: "TENOFF", CustomerID: "u1", OrderID: "o1",
		ProductID: "p1", BasePrice: 100, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteDiscount(context.Background(), "d1"))

	_, err = f.discounts.FindByID(context.Background(), "d1")
	assert.ErrorIs(t, err, domain.ErrDiscountNotFound)
	_, err = f.coupons.FindByCode(context.Background(), "s1", "TENOFF")
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
	count, _ := f.ledger.CountForCoupon(context.Background(), "c1")
	assert.Zero(t, count)
}

func TestValidateCoupon_Response(t *testing.T) {
	f := redeemFixture()

	resp, err := f.service.ValidateCoupon(context.Background(), &ValidateCouponRequest{
		StoreID: "s1", Code: "TENOFF",
	})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "c1", resp.CouponCodeID)
	assert.Equal(t, "d1", resp.DiscountID)
	assert.InDelta(t, 10.0, resp.Value, 1e-9)
	assert.Equal(t, string(domain.ValueFixed), resp.ValueKind)
}

func TestSetDiscountStatus(t *testing.T) {
	f := redeemFixture()

	require.NoError(t, f.service.SetDiscountStatus(context.Background(), "d1", false))
	_, err := f.service.ValidateCoupon(context.Background(), &ValidateCouponRequest{StoreID: "s1", Code: "TENOFF"})
	assert.ErrorIs(t, err, domain.ErrCouponInactive)

	require.NoError(t, f.service.SetDiscountStatus(context.Background(), "d1", true))
	_, err = f.service.ValidateCoupon(context.Background(), &ValidateCouponRequest{StoreID: "s1", Code: "TENOFF"})
	assert.NoError(t, err)
}
