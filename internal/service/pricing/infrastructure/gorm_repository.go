// internal/service/pricing/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"bazaar/internal/service/pricing/domain"
)

// AutoMigrate 建出定价域的全部表。main 和测试共用。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&DiscountModel{}, &CouponCodeModel{}, &CouponUsageModel{})
}

// GormDiscountRepository 是 DiscountRepository 的 GORM 实现。
type GormDiscountRepository struct {
	db *gorm.DB
}

func NewGormDiscountRepository(db *gorm.DB) *GormDiscountRepository {
	return &GormDiscountRepository{db: db}
}

func (r *GormDiscountRepository) FindByID(ctx context.Context, id string) (*domain.Discount, error) {
	var model DiscountModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDiscountNotFound
		}
		return nil, pkgerrors.Wrap(err, "find discount")
	}
	return ToDomainDiscount(&model), nil
}

func (r *GormDiscountRepository) FindLiveForProduct(ctx context.Context, storeID, productID string, now time.Time) ([]*domain.Discount, error) {
	var models []DiscountModel
	q := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("starts_at <= ?", now).
		Where("(ends_at IS NULL OR ends_at >= ?)", now).
		Where("(usage_limit = 0 OR usage_count < usage_limit)").
		Order("priority DESC")
	if storeID != "" {
		q = q.Where("store_id = ?", storeID)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list live discounts")
	}

	// 范围匹配（products/combinations 的 target 集合是 JSON 列）在内存里做，
	// 数据量就是一家店的在售折扣，不值得上 JSON 查询。
	out := make([]*domain.Discount, 0, len(models))
	for i := range models {
		d := ToDomainDiscount(&models[i])
		if d.AppliesToProduct(productID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *GormDiscountRepository) Create(ctx context.Context, d *domain.Discount) error {
	if err := r.db.WithContext(ctx).Create(FromDomainDiscount(d)).Error; err != nil {
		return pkgerrors.Wrap(err, "create discount")
	}
	return nil
}

func (r *GormDiscountRepository) SetActive(ctx context.Context, id string, active bool) error {
	res := r.db.WithContext(ctx).Model(&DiscountModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "set discount status")
	}
	if res.RowsAffected == 0 {
		return domain.ErrDiscountNotFound
	}
	return nil
}

// IncrementUsage 用一条带守卫的 UPDATE 完成“检查 + 自增”，
// 并发核销在额度边缘最多只有一个能成功。
func (r *GormDiscountRepository) IncrementUsage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&DiscountModel{}).
		Where("id = ?", id).
		Where("(usage_limit = 0 OR usage_count < usage_limit)").
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "increment discount usage")
	}
	if res.RowsAffected == 0 {
		// 要么折扣不存在，要么额度已耗尽；区分两者需要再查一次
		var count int64
		if err := r.db.WithContext(ctx).Model(&DiscountModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return pkgerrors.Wrap(err, "increment discount usage")
		}
		if count == 0 {
			return domain.ErrDiscountNotFound
		}
		return domain.ErrUsageLimitReached
	}
	return nil
}

func (r *GormDiscountRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DiscountModel{}).Error; err != nil {
		return pkgerrors.Wrap(err, "delete discount")
	}
	return nil
}

// GormCouponRepository 是 CouponRepository 的 GORM 实现。
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

func (r *GormCouponRepository) FindByCode(ctx context.Context, storeID, code string) (*domain.CouponCode, error) {
	var model CouponCodeModel
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND code = ?", storeID, domain.NormalizeCode(code)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, pkgerrors.Wrap(err, "find coupon by code")
	}
	return ToDomainCoupon(&model), nil
}

func (r *GormCouponRepository) ExistsCode(ctx context.Context, storeID, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&CouponCodeModel{}).
		Where("store_id = ? AND code = ?", storeID, domain.NormalizeCode(code)).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(err, "check coupon code existence")
	}
	return count > 0, nil
}

func (r *GormCouponRepository) Create(ctx context.Context, c *domain.CouponCode) error {
	if err := r.db.WithContext(ctx).Create(FromDomainCoupon(c)).Error; err != nil {
		return pkgerrors.Wrap(err, "create coupon code")
	}
	return nil
}

func (r *GormCouponRepository) IncrementUsage(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&CouponCodeModel{}).
		Where("id = ?", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "increment coupon usage")
	}
	if res.RowsAffected == 0 {
		return domain.ErrCouponNotFound
	}
	return nil
}

func (r *GormCouponRepository) ListByDiscount(ctx context.Context, discountID string) ([]*domain.CouponCode, error) {
	var models []CouponCodeModel
	if err := r.db.WithContext(ctx).Where("discount_id = ?", discountID).Find(&models).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list coupons by discount")
	}
	out := make([]*domain.CouponCode, 0, len(models))
	for i := range models {
		out = append(out, ToDomainCoupon(&models[i]))
	}
	return out, nil
}

func (r *GormCouponRepository) DeleteByDiscount(ctx context.Context, discountID string) error {
	if err := r.db.WithContext(ctx).Where("discount_id = ?", discountID).Delete(&CouponCodeModel{}).Error; err != nil {
		return pkgerrors.Wrap(err, "delete coupons by discount")
	}
	return nil
}

// GormUsageLedger 是 UsageLedger 的 GORM 实现。
type GormUsageLedger struct {
	db *gorm.DB
}

func NewGormUsageLedger(db *gorm.DB) *GormUsageLedger {
	return &GormUsageLedger{db: db}
}

func (l *GormUsageLedger) CountForCoupon(ctx context.Context, couponCodeID string) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&CouponUsageModel{}).
		Where("coupon_code_id = ?", couponCodeID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count coupon usage")
	}
	return count, nil
}

func (l *GormUsageLedger) CountForCouponAndCustomer(ctx context.Context, couponCodeID, customerID string) (int64, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&CouponUsageModel{}).
		Where("coupon_code_id = ? AND customer_id = ?", couponCodeID, customerID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(err, "count coupon usage for customer")
	}
	return count, nil
}

// FindByOrder 查找某张券在某笔订单上的核销记录。
func (l *GormUsageLedger) FindByOrder(ctx context.Context, couponCodeID, orderID string) (*domain.CouponUsage, error) {
	var m CouponUsageModel
	err := l.db.WithContext(ctx).
		Where("coupon_code_id = ? AND order_id = ?", couponCodeID, orderID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find usage by order")
	}
	return ToDomainUsage(&m), nil
}

// RecordUsage 落一条核销流水。orderID 非空时先查重：
// 重试同一笔订单拿回同一条记录，不会重复计数。
func (l *GormUsageLedger) RecordUsage(ctx context.Context, usage *domain.CouponUsage) (*domain.CouponUsage, error) {
	if usage.OrderID != "" {
		var existing CouponUsageModel
		err := l.db.WithContext(ctx).
			Where("coupon_code_id = ? AND order_id = ?", usage.CouponCodeID, usage.OrderID).
			First(&existing).Error
		if err == nil {
			return ToDomainUsage(&existing), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(err, "check usage idempotency")
		}
	}
	if err := l.db.WithContext(ctx).Create(FromDomainUsage(usage)).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "record coupon usage")
	}
	return usage, nil
}

func (l *GormUsageLedger) DeleteByCoupon(ctx context.Context, couponCodeID string) error {
	if err := l.db.WithContext(ctx).Where("coupon_code_id = ?", couponCodeID).Delete(&CouponUsageModel{}).Error; err != nil {
		return pkgerrors.Wrap(err, "delete coupon usages")
	}
	return nil
}
