// internal/service/pricing/application/service.go
package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/metrics"
	"bazaar/internal/service/pricing/domain"
	"bazaar/internal/service/pricing/port"
)

// PricingService 编排定价域的所有用例：校验、计价、核销、
// 券码创建和折扣的管理操作。
type PricingService struct {
	validator  *CouponValidator
	calculator *PriceCalculator

	discounts domain.DiscountRepository
	coupons   domain.CouponRepository
	ledger    domain.UsageLedger
	clock     domain.Clock

	guard      port.RedemptionGuard
	commission port.CommissionService
	events     port.RedemptionEventProducer
	locker     port.CodeLocker

	tracer trace.Tracer
}

// NewPricingService 组装定价服务。guard/events/locker 由 main 的组装根注入。
func NewPricingService(
	validator *CouponValidator,
	calculator *PriceCalculator,
	discounts domain.DiscountRepository,
	coupons domain.CouponRepository,
	ledger domain.UsageLedger,
	clock domain.Clock,
	guard port.RedemptionGuard,
	commission port.CommissionService,
	events port.RedemptionEventProducer,
	locker port.CodeLocker,
	tracer trace.Tracer,
) *PricingService {
	return &PricingService{
		validator:  validator,
		calculator: calculator,
		discounts:  discounts,
		coupons:    coupons,
		ledger:     ledger,
		clock:      clock,
		guard:      guard,
		commission: commission,
		events:     events,
		locker:     locker,
		tracer:     tracer,
	}
}

// ValidateCoupon 只做校验，不占额度、不落任何记录。
func (s *PricingService) ValidateCoupon(ctx context.Context, req *ValidateCouponRequest) (*ValidateCouponResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.ValidateCoupon")
	defer span.End()

	result, err := s.validator.Validate(ctx, ValidationInput{
		StoreID:    req.StoreID,
		Code:       req.Code,
		CustomerID: req.CustomerID,
		CartTotal:  req.CartTotal,
		Quantity:   req.Quantity,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		metrics.CouponValidations.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	metrics.CouponValidations.WithLabelValues("ok").Inc()

	return &ValidateCouponResponse{
		Valid:        true,
		CouponCodeID: result.Coupon.ID,
		DiscountID:   result.Discount.ID,
		DiscountName: result.Discount.Name,
		Message:      "coupon is valid",
		Value:        result.Discount.Value,
		ValueKind:    string(result.Discount.ValueKind),
	}, nil
}

// QuotePrice 计算不含券层的价格分解（vendor → commission → influencer）。
func (s *PricingService) QuotePrice(ctx context.Context, req *QuotePriceRequest) (*PriceBreakdown, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.QuotePrice")
	defer span.End()

	commission, err := s.commission.CommissionFor(ctx, req.ProductID, req.BasePrice)
	if err != nil {
		// 分佣方不可用时按 0 计，计价本身不应因此失败
		logger.Ctx(ctx).Warn().Err(err).Str("product", req.ProductID).Msg("commission service unavailable, defaulting to 0")
		span.RecordError(err)
		commission = 0
	}

	breakdown, err := s.calculator.Quote(ctx, QuoteInput{
		ProductID:  req.ProductID,
		StoreID:    req.StoreID,
		BasePrice:  req.BasePrice,
		Quantity:   req.Quantity,
		CustomerID: req.CustomerID,
		Commission: commission,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.PriceQuotes.Inc()
	return breakdown, nil
}

// RedeemCoupon 是核销用例：校验 → 原子占额度 → 计价（含券层）→
// 记账（按 orderID 幂等）→ 广播事件。记账之后的任何失败都不再回滚记账，
// 事件发布失败只告警。
func (s *PricingService) RedeemCoupon(ctx context.Context, req *RedeemCouponRequest) (*RedeemCouponResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.RedeemCoupon")
	defer span.End()

	span.SetAttributes(
		attribute.String("coupon.code", domain.NormalizeCode(req.Code)),
		attribute.String("customer.id", req.CustomerID),
		attribute.String("order.id", req.OrderID),
	)

	if req.CustomerID == "" {
		return nil, domain.NewValidationError("redemption requires a customer id")
	}

	cartTotal := req.BasePrice
	result, err := s.validator.Validate(ctx, ValidationInput{
		StoreID:    req.StoreID,
		Code:       req.Code,
		CustomerID: req.CustomerID,
		CartTotal:  &cartTotal,
		Quantity:   req.Quantity,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		metrics.CouponValidations.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	metrics.CouponValidations.WithLabelValues("ok").Inc()
	discount, coupon := result.Discount, result.Coupon

	// 同一笔订单的重试直接返回首次核销的结果：
	// 不再占额度、不再累加计数器，否则重试会把名额白白烧掉。
	if req.OrderID != "" {
		existing, err := s.ledger.FindByOrder(ctx, coupon.ID, req.OrderID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if existing != nil {
			logger.Ctx(ctx).Info().Str("order", req.OrderID).Str("coupon", coupon.ID).Msg("order already redeemed, replaying recorded result")
			breakdown, err := s.quoteWithCoupon(ctx, req, discount)
			if err != nil {
				return nil, err
			}
			return &RedeemCouponResponse{
				Success:   true,
				UsageID:   existing.ID,
				Breakdown: breakdown,
				Message:   "coupon already redeemed for this order",
			}, nil
		}
	}

	// 校验里的限次检查是读后判断，并发核销在额度边缘会双双通过。
	// 这里用原子闸门再占一次位，真正保证 usage_count 不越限。
	globalCount, err := s.ledger.CountForCoupon(ctx, coupon.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	customerCount, err := s.ledger.CountForCouponAndCustomer(ctx, coupon.ID, req.CustomerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := s.guard.Acquire(ctx, coupon.ID, req.CustomerID, discount.UsageLimit, discount.UsageLimitPerCustomer, globalCount, customerCount); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "redemption slot denied")
		return nil, err
	}

	resp, err := s.finishRedemption(ctx, req, discount, coupon)
	if err != nil {
		// 占到的额度必须归还，否则失败的请求会吃掉别人的名额
		if relErr := s.guard.Release(ctx, coupon.ID, req.CustomerID); relErr != nil {
			logger.Ctx(ctx).Error().Err(relErr).Str("coupon", coupon.ID).Msg("failed to release redemption slot")
			span.RecordError(relErr)
		}
		return nil, err
	}
	return resp, nil
}

// quoteWithCoupon 在常规计价之上叠加券层。
// 注意券绑定的折扣如果同时是店铺内优先级最高的自动折扣，
// 会先作为 vendor 层、再作为券层各生效一次（叠加语义，见 PriceCalculator 文档）。
func (s *PricingService) quoteWithCoupon(ctx context.Context, req *RedeemCouponRequest, discount *domain.Discount) (*PriceBreakdown, error) {
	breakdown, err := s.QuotePrice(ctx, &QuotePriceRequest{
		ProductID:  req.ProductID,
		StoreID:    req.StoreID,
		BasePrice:  req.BasePrice,
		Quantity:   req.Quantity,
		CustomerID: req.CustomerID,
	})
	if err != nil {
		return nil, err
	}

	// 券层作用在已含 vendor/commission/influencer 的价格上
	couponAmount := domain.DiscountAmount(discount, breakdown.FinalPrice, req.Quantity)
	breakdown.CouponDiscount = couponAmount
	breakdown.FinalPrice -= couponAmount
	if breakdown.FinalPrice < 0 {
		breakdown.FinalPrice = 0
	}
	breakdown.TotalSavings += couponAmount
	breakdown.AppliedDiscounts = append(breakdown.AppliedDiscounts, AppliedDiscount{
		ID: discount.ID, Name: discount.Name, Amount: couponAmount, Type: discount.Kind,
	})
	return breakdown, nil
}

// finishRedemption 在占到额度之后执行剩余步骤。
func (s *PricingService) finishRedemption(ctx context.Context, req *RedeemCouponRequest, discount *domain.Discount, coupon *domain.CouponCode) (*RedeemCouponResponse, error) {
	span := trace.SpanFromContext(ctx)

	breakdown, err := s.quoteWithCoupon(ctx, req, discount)
	if err != nil {
		return nil, err
	}

	fresh := &domain.CouponUsage{
		ID:             uuid.New().String(),
		CouponCodeID:   coupon.ID,
		CustomerID:     req.CustomerID,
		OrderID:        req.OrderID,
		DiscountAmount: breakdown.CouponDiscount,
		UsedAt:         s.clock.Now(),
	}
	usage, err := s.ledger.RecordUsage(ctx, fresh)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if usage.ID != fresh.ID {
		// 并发重试挤过了前面的查重：账本返回已有记录。
		// 归还刚占的额度，计数器和事件都不再动。
		if relErr := s.guard.Release(ctx, coupon.ID, req.CustomerID); relErr != nil {
			logger.Ctx(ctx).Error().Err(relErr).Str("coupon", coupon.ID).Msg("failed to release redemption slot")
			span.RecordError(relErr)
		}
		return &RedeemCouponResponse{
			Success:   true,
			UsageID:   usage.ID,
			Breakdown: breakdown,
			Message:   "coupon already redeemed for this order",
		}, nil
	}

	if err := s.coupons.IncrementUsage(ctx, coupon.ID); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("coupon", coupon.ID).Msg("failed to bump coupon usage counter")
		span.RecordError(err)
	}
	if err := s.discounts.IncrementUsage(ctx, discount.ID); err != nil {
		// 条件自增在并发边缘可能失败；账本记录才是权威计数
		logger.Ctx(ctx).Error().Err(err).Str("discount", discount.ID).Msg("failed to bump discount usage counter")
		span.RecordError(err)
	}
	metrics.CouponRedemptions.Inc()

	// 事件广播是非关键路径：失败只记 warning，核销结果照常返回
	ev := &port.RedemptionEvent{
		EventID:      uuid.New().String(),
		CouponCodeID: coupon.ID,
		Code:         coupon.Code,
		StoreID:      coupon.StoreID,
		CustomerID:   req.CustomerID,
		OrderID:      req.OrderID,
		Amount:       usage.DiscountAmount,
		RedeemedAt:   usage.UsedAt,
	}
	if err := s.events.PublishRedemption(ctx, ev); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("coupon", coupon.ID).Msg("failed to publish redemption event")
		span.RecordError(err)
	}

	return &RedeemCouponResponse{
		Success:   true,
		UsageID:   usage.ID,
		Breakdown: breakdown,
		Message:   "coupon redeemed",
	}, nil
}

// CreateCouponCode 创建一个店铺内唯一的券码。
// 存储层没有唯一约束，所以用分布式锁把“查重 + 插入”串成临界区。
func (s *PricingService) CreateCouponCode(ctx context.Context, req *CreateCouponCodeRequest) (*CreateCouponCodeResponse, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.CreateCouponCode")
	defer span.End()

	code := domain.NormalizeCode(req.Code)
	if req.StoreID == "" || code == "" || req.DiscountID == "" {
		return nil, domain.NewValidationError("store id, code and discount id are required")
	}

	if _, err := s.discounts.FindByID(ctx, req.DiscountID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	coupon := &domain.CouponCode{
		ID:         uuid.New().String(),
		StoreID:    req.StoreID,
		Code:       code,
		DiscountID: req.DiscountID,
		Active:     true,
		CreatedAt:  s.clock.Now(),
		UpdatedAt:  s.clock.Now(),
	}

	err := s.locker.WithLock("coupon-code:"+req.StoreID, func() error {
		exists, err := s.coupons.ExistsCode(ctx, req.StoreID, code)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrCodeAlreadyExists
		}
		return s.coupons.Create(ctx, coupon)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &CreateCouponCodeResponse{ID: coupon.ID, Code: coupon.Code}, nil
}

// CreateDiscount 创建折扣规则。
func (s *PricingService) CreateDiscount(ctx context.Context, d *domain.Discount) error {
	ctx, span := s.tracer.Start(ctx, "pricing.CreateDiscount")
	defer span.End()

	if err := d.Validate(); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := s.clock.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	if err := s.discounts.Create(ctx, d); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// SetDiscountStatus 软启停。券码仍引用折扣时只停用，不删除。
func (s *PricingService) SetDiscountStatus(ctx context.Context, id string, active bool) error {
	ctx, span := s.tracer.Start(ctx, "pricing.SetDiscountStatus")
	defer span.End()
	return s.discounts.SetActive(ctx, id, active)
}

// DeleteDiscount 是显式的管理级联删除：先删核销记录，再删券码，
// 最后删折扣本身——依赖者先于被依赖者。
func (s *PricingService) DeleteDiscount(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "pricing.DeleteDiscount")
	defer span.End()

	codes, err := s.coupons.ListByDiscount(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	for _, c := range codes {
		if err := s.ledger.DeleteByCoupon(ctx, c.ID); err != nil {
			span.RecordError(err)
			return err
		}
	}
	if err := s.coupons.DeleteByDiscount(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.discounts.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	logger.Ctx(ctx).Info().Str("discount", id).Int("codes", len(codes)).Msg("discount cascade-deleted")
	return nil
}

// outcomeLabel 把校验错误折叠成指标的 outcome 标签。
func outcomeLabel(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Reason != domain.ReasonNone {
			return string(de.Reason)
		}
		return string(de.Kind)
	}
	return "error"
}
