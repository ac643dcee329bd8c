// internal/service/pricing/application/validator.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/service/pricing/domain"
)

// ValidationInput 是一次券码校验的入参。
// CartTotal 为 nil 表示调用方没有提供购物车总额，对应检查跳过。
type ValidationInput struct {
	StoreID    string
	Code       string
	CustomerID string
	CartTotal  *float64
	Quantity   int
	ProductIDs []string
}

// ValidationResult 是校验通过后解析出的 (折扣, 券码) 对。
type ValidationResult struct {
	Discount *domain.Discount
	Coupon   *domain.CouponCode
}

// CouponValidator 按固定顺序执行校验状态机：
// 存在性 → 券启用 → 折扣解析 → 时间窗 → 全局限次 → 客户限次 →
// 客户资格 → 自定义规则 → 最低消费 → 商品适用性。
// 单趟、fail-fast、无重试：这是只读校验，不是资源操作。
type CouponValidator struct {
	discounts domain.DiscountRepository
	coupons   domain.CouponRepository
	ledger    domain.UsageLedger
	rules     domain.RuleEngine
	clock     domain.Clock
	tracer    trace.Tracer
}

// NewCouponValidator 组装一个校验器。rules 可以为 nil，此时跳过自定义规则步骤。
func NewCouponValidator(discounts domain.DiscountRepository, coupons domain.CouponRepository, ledger domain.UsageLedger, rules domain.RuleEngine, clock domain.Clock, tracer trace.Tracer) *CouponValidator {
	return &CouponValidator{
		discounts: discounts,
		coupons:   coupons,
		ledger:    ledger,
		rules:     rules,
		clock:     clock,
		tracer:    tracer,
	}
}

// Validate 执行整个状态机。第一个失败的步骤决定返回的错误。
func (v *CouponValidator) Validate(ctx context.Context, in ValidationInput) (*ValidationResult, error) {
	ctx, span := v.tracer.Start(ctx, "validator.Validate")
	defer span.End()

	code := domain.NormalizeCode(in.Code)
	span.SetAttributes(
		attribute.String("coupon.code", code),
		attribute.String("store.id", in.StoreID),
	)

	if in.StoreID == "" || code == "" {
		return nil, domain.NewValidationError("store id and coupon code are required")
	}

	// 1. Lookup
	coupon, err := v.coupons.FindByCode(ctx, in.StoreID, code)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 2. CouponActive
	if !coupon.Active {
		return v.reject(span, domain.ErrCouponInactive)
	}

	// 3. DiscountLookup
	discount, err := v.discounts.FindByID(ctx, coupon.DiscountID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !discount.Active {
		return v.reject(span, domain.ErrCouponInactive)
	}

	// 4. DateWindow
	now := v.clock.Now()
	if now.Before(discount.StartsAt) {
		return v.reject(span, domain.ErrCouponNotStarted)
	}
	if discount.EndsAt != nil && now.After(*discount.EndsAt) {
		return v.reject(span, domain.ErrCouponExpired)
	}

	// 5. GlobalUsageLimit
	if discount.UsageExhausted() {
		return v.reject(span, domain.ErrUsageLimitReached)
	}

	// 6. PerCustomerLimit
	if in.CustomerID != "" && discount.UsageLimitPerCustomer > 0 {
		count, err := v.ledger.CountForCouponAndCustomer(ctx, coupon.ID, in.CustomerID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if count >= int64(discount.UsageLimitPerCustomer) {
			return v.reject(span, domain.ErrUsageLimitReached)
		}
	}

	// 7. CustomerEligibility
	if in.CustomerID != "" && !discount.CustomerEligible(in.CustomerID) {
		return v.reject(span, domain.ErrCustomerNotEligible)
	}

	// 7.5 自定义资格规则（可选 CEL 表达式）。
	// 表达式错误按拒绝处理：宁可少放行，不能多放行。
	if discount.EligibilityRule != "" && v.rules != nil {
		fact := domain.Fact{
			CustomerID: in.CustomerID,
			Quantity:   int64(in.Quantity),
			ProductIDs: in.ProductIDs,
		}
		if in.CartTotal != nil {
			fact.CartTotal = *in.CartTotal
		}
		ok, err := v.rules.Evaluate(discount.EligibilityRule, fact)
		if err != nil {
			span.RecordError(err)
			return v.reject(span, domain.ErrCustomerNotEligible)
		}
		if !ok {
			return v.reject(span, domain.ErrCustomerNotEligible)
		}
	}

	// 8. MinimumPurchase
	if in.CartTotal != nil && discount.MinPurchaseAmount > 0 && *in.CartTotal < discount.MinPurchaseAmount {
		return v.reject(span, domain.ErrBelowMinimumPurchase)
	}

	// 9. ProductApplicability
	// 只有 products 范围会和入参商品集合求交集；
	// categories/collections 是文档化的留白，按 store_wide 放行。
	if discount.AppliesTo == domain.ScopeProducts && len(in.ProductIDs) > 0 {
		if !discount.AppliesToAny(in.ProductIDs) {
			return v.reject(span, domain.ErrCouponNotApplicable)
		}
	}

	span.AddEvent("coupon validated")
	return &ValidationResult{Discount: discount, Coupon: coupon}, nil
}

func (v *CouponValidator) reject(span trace.Span, err *domain.Error) (*ValidationResult, error) {
	span.SetStatus(codes.Error, err.Message)
	return nil, err
}
