// internal/service/pricing/application/fakes_test.go
package application

import (
	"context"
	"sync"
	"time"

	"bazaar/internal/service/pricing/domain"
	"bazaar/internal/service/pricing/port"
)

// fixedClock 让时间窗测试可确定重放。
type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// memDiscountRepo 是 DiscountRepository 的内存实现。
type memDiscountRepo struct {
	mu        sync.Mutex
	discounts map[string]*domain.Discount
}

func newMemDiscountRepo(ds ...*domain.Discount) *memDiscountRepo {
	r := &memDiscountRepo{discounts: map[string]*domain.Discount{}}
	for _, d := range ds {
		r.discounts[d.ID] = d
	}
	return r
}

func (r *memDiscountRepo) FindByID(_ context.Context, id string) (*domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok {
		return nil, domain.ErrDiscountNotFound
	}
	return d, nil
}

func (r *memDiscountRepo) FindLiveForProduct(_ context.Context, storeID, productID string, now time.Time) ([]*domain.Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Discount
	for _, d := range r.discounts {
		if d.StoreID != storeID || !d.LiveAt(now) || !d.AppliesToProduct(productID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *memDiscountRepo) Create(_ context.Context, d *domain.Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discounts[d.ID] = d
	return nil
}

func (r *memDiscountRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok {
		return domain.ErrDiscountNotFound
	}
	d.Active = active
	return nil
}

func (r *memDiscountRepo) IncrementUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.discounts[id]
	if !ok {
		return domain.ErrDiscountNotFound
	}
	if d.UsageLimit > 0 && d.UsageCount >= d.UsageLimit {
		return domain.ErrUsageLimitReached
	}
	d.UsageCount++
	return nil
}

func (r *memDiscountRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.discounts, id)
	return nil
}

// memCouponRepo 是 CouponRepository 的内存实现。
type memCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]*domain.CouponCode
}

func newMemCouponRepo(cs ...*domain.CouponCode) *memCouponRepo {
	r := &memCouponRepo{coupons: map[string]*domain.CouponCode{}}
	for _, c := range cs {
		r.coupons[c.ID] = c
	}
	return r
}

func (r *memCouponRepo) FindByCode(_ context.Context, storeID, code string) (*domain.CouponCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.StoreID == storeID && c.Code == code {
			return c, nil
		}
	}
	return nil, domain.ErrCouponNotFound
}

func (r *memCouponRepo) ExistsCode(_ context.Context, storeID, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.coupons {
		if c.StoreID == storeID && c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCouponRepo) Create(_ context.Context, c *domain.CouponCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[c.ID] = c
	return nil
}

func (r *memCouponRepo) IncrementUsage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.coupons[id]; ok {
		c.UsageCount++
	}
	return nil
}

func (r *memCouponRepo) ListByDiscount(_ context.Context, discountID string) ([]*domain.CouponCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.CouponCode
	for _, c := range r.coupons {
		if c.DiscountID == discountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCouponRepo) DeleteByDiscount(_ context.Context, discountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.coupons {
		if c.DiscountID == discountID {
			delete(r.coupons, id)
		}
	}
	return nil
}

// memLedger 是 UsageLedger 的内存实现，带 orderID 幂等。
type memLedger struct {
	mu     sync.Mutex
	usages []*domain.CouponUsage
}

func (l *memLedger) CountForCoupon(_ context.Context, couponCodeID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, u := range l.usages {
		if u.CouponCodeID == couponCodeID {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) CountForCouponAndCustomer(_ context.Context, couponCodeID, customerID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, u := range l.usages {
		if u.CouponCodeID == couponCodeID && u.CustomerID == customerID {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) FindByOrder(_ context.Context, couponCodeID, orderID string) (*domain.CouponUsage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.usages {
		if u.CouponCodeID == couponCodeID && u.OrderID == orderID {
			return u, nil
		}
	}
	return nil, nil
}

func (l *memLedger) RecordUsage(_ context.Context, usage *domain.CouponUsage) (*domain.CouponUsage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if usage.OrderID != "" {
		for _, u := range l.usages {
			if u.OrderID == usage.OrderID {
				return u, nil
			}
		}
	}
	l.usages = append(l.usages, usage)
	return usage, nil
}

func (l *memLedger) DeleteByCoupon(_ context.Context, couponCodeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.usages[:0]
	for _, u := range l.usages {
		if u.CouponCodeID != couponCodeID {
			kept = append(kept, u)
		}
	}
	l.usages = kept
	return nil
}

// fakeGuard 记录 Acquire/Release 调用，可注入失败。
type fakeGuard struct {
	mu       sync.Mutex
	acquired int
	released int
	denyErr  error
}

func (g *fakeGuard) Acquire(_ context.Context, _, _ string, _, _ int, _, _ int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.denyErr != nil {
		return g.denyErr
	}
	g.acquired++
	return nil
}

func (g *fakeGuard) Release(_ context.Context, _, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released++
	return nil
}

// fakeEvents 收集发布的核销事件。
type fakeEvents struct {
	mu     sync.Mutex
	events []*port.RedemptionEvent
	err    error
}

func (f *fakeEvents) PublishRedemption(_ context.Context, ev *port.RedemptionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

// inlineLocker 直接执行临界区，测试里没有并发写入方。
type inlineLocker struct{}

func (inlineLocker) WithLock(_ string, fn func() error) error { return fn() }

// staticCommission 恒定佣金。
type staticCommission struct{ amount float64 }

func (c staticCommission) CommissionFor(_ context.Context, _ string, _ float64) (float64, error) {
	return c.amount, nil
}

// allowAllRules / denyAllRules 是 RuleEngine 的两个极端。
type allowAllRules struct{}

func (allowAllRules) Evaluate(string, domain.Fact) (bool, error) { return true, nil }

type denyAllRules struct{}

func (denyAllRules) Evaluate(string, domain.Fact) (bool, error) { return false, nil }
