// internal/service/pricing/application/calculator.go
package application

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/service/pricing/domain"
)

// AppliedDiscount 是审计清单里的一项：哪条折扣、扣了多少、按什么顺序。
type AppliedDiscount struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Amount float64             `json:"amount"`
	Type   domain.DiscountKind `json:"type"`
}

// PriceBreakdown 是一次计价的完整分解。只存在于内存，不落库。
// 相同输入必须产出逐字节相同的结果（审计清单顺序也要一致）。
type PriceBreakdown struct {
	OriginalPrice      float64           `json:"originalPrice"`
	VendorDiscount     float64           `json:"vendorDiscount"`
	InfluencerDiscount float64           `json:"influencerDiscount"`
	CouponDiscount     float64           `json:"couponDiscount"`
	Commission         float64           `json:"commission"`
	FinalPrice         float64           `json:"finalPrice"`
	TotalSavings       float64           `json:"totalSavings"`
	AppliedDiscounts   []AppliedDiscount `json:"appliedDiscounts"`
}

// QuoteInput 是计价入参。Commission 由外部协作方给出，缺省 0。
type QuoteInput struct {
	ProductID  string
	StoreID    string
	BasePrice  float64
	Quantity   int
	CustomerID string
	Commission float64
}

// PriceCalculator 把多条可用折扣按固定的叠加契约合成最终价格：
//
//	vendor（实体店，最高优先级）→ commission → influencer（虚拟店，可叠加，最高优先级）
//
// 这个顺序是对外契约，改动会直接改变客户看到的价格，受回归测试保护。
//
// 核销时券层叠加在这三层之后。券绑定的折扣不会被从自动层里剔除：
// 如果它恰好也是店铺内优先级最高的自动折扣，就先走 vendor 层、
// 再走券层各生效一次。想避免叠加的折扣应当把 Combinable 关掉并降低优先级。
type PriceCalculator struct {
	discounts domain.DiscountRepository
	clock     domain.Clock
	tracer    trace.Tracer
}

func NewPriceCalculator(discounts domain.DiscountRepository, clock domain.Clock, tracer trace.Tracer) *PriceCalculator {
	return &PriceCalculator{discounts: discounts, clock: clock, tracer: tracer}
}

// Quote 计算一次价格分解。
func (c *PriceCalculator) Quote(ctx context.Context, in QuoteInput) (*PriceBreakdown, error) {
	ctx, span := c.tracer.Start(ctx, "calculator.Quote")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", in.ProductID),
		attribute.Float64("price.base", in.BasePrice),
		attribute.Int("quantity", in.Quantity),
	)

	if in.ProductID == "" || in.BasePrice < 0 || in.Quantity <= 0 {
		return nil, domain.NewValidationError("quote requires product id, non-negative price and positive quantity")
	}

	now := c.clock.Now()
	live, err := c.discounts.FindLiveForProduct(ctx, in.StoreID, in.ProductID, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 仓储已按 priority 降序返回；这里再排一次并用 ID 破平，
	// 保证相同输入下结果可逐字节复现。
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].Priority != live[j].Priority {
			return live[i].Priority > live[j].Priority
		}
		return live[i].ID < live[j].ID
	})

	var applicable []*domain.Discount
	for _, d := range live {
		if in.CustomerID != "" && !d.CustomerEligible(in.CustomerID) {
			continue
		}
		if !d.AppliesToProduct(in.ProductID) {
			continue
		}
		applicable = append(applicable, d)
	}

	breakdown := &PriceBreakdown{
		OriginalPrice:    in.BasePrice,
		Commission:       in.Commission,
		AppliedDiscounts: []AppliedDiscount{},
	}

	// 1. vendor 层：实体店折扣里优先级最高的一条，作用在原价上
	running := in.BasePrice
	if vendor := firstByStoreKind(applicable, domain.StorePhysical, false); vendor != nil {
		amount := domain.DiscountAmount(vendor, in.BasePrice, in.Quantity)
		breakdown.VendorDiscount = amount
		running -= amount
		breakdown.AppliedDiscounts = append(breakdown.AppliedDiscounts, AppliedDiscount{
			ID: vendor.ID, Name: vendor.Name, Amount: amount, Type: vendor.Kind,
		})
	}

	// 2. 加上分佣
	running += in.Commission

	// 3. influencer 层：虚拟店、允许叠加的折扣里优先级最高的一条，
	//    作用在 (扣完 vendor 的价格 + 佣金) 上
	if inf := firstByStoreKind(applicable, domain.StoreVirtual, true); inf != nil {
		amount := domain.DiscountAmount(inf, running, in.Quantity)
		breakdown.InfluencerDiscount = amount
		running -= amount
		breakdown.AppliedDiscounts = append(breakdown.AppliedDiscounts, AppliedDiscount{
			ID: inf.ID, Name: inf.Name, Amount: amount, Type: inf.Kind,
		})
	}

	if running < 0 {
		running = 0
	}
	breakdown.FinalPrice = running
	breakdown.TotalSavings = breakdown.VendorDiscount + breakdown.InfluencerDiscount

	span.AddEvent("price breakdown computed")
	return breakdown, nil
}

// firstByStoreKind 返回给定店铺类型下优先级最高的折扣。
// requireCombinable 时只考虑允许叠加的折扣。
func firstByStoreKind(ds []*domain.Discount, kind domain.StoreKind, requireCombinable bool) *domain.Discount {
	for _, d := range ds {
		if d.StoreKind != kind {
			continue
		}
		if requireCombinable && !d.Combinable {
			continue
		}
		return d
	}
	return nil
}
