// internal/service/pricing/domain/errors.go
package domain

// ErrorKind 是错误分类，接口层据此映射 HTTP 状态码。
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"     // 入参形状错误，未发生任何 I/O
	KindNotFound      ErrorKind = "not_found"      // 券/折扣/商品不存在
	KindRuleViolation ErrorKind = "rule_violation" // 校验规则拒绝，用户可自行修正
	KindExternal      ErrorKind = "external"       // 存储不可达等外部故障
)

// Reason 标识校验状态机里具体哪一步拒绝了请求。
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonLimitReached Reason = "limit_reached"
	ReasonNotEligible  Reason = "not_eligible"
	ReasonBelowMinimum Reason = "below_minimum"
	ReasonNotApplicable Reason = "not_applicable"
)

// Error 是带标签的领域错误。Kind/Reason 相同即视为同一错误，
// 所以 errors.Is 可以直接和下面的哨兵值比较。
type Error struct {
	Kind    ErrorKind
	Reason  Reason
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is 按 Kind+Reason 匹配，忽略 Message。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Reason == e.Reason
}

// NewValidationError 构造入参校验错误。
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewExternalError 构造外部依赖故障错误。
func NewExternalError(msg string) *Error {
	return &Error{Kind: KindExternal, Message: msg}
}

// 校验状态机各步的哨兵错误。
var (
	ErrCouponNotFound   = &Error{Kind: KindNotFound, Message: "coupon code not found"}
	ErrDiscountNotFound = &Error{Kind: KindNotFound, Message: "discount not found"}
	ErrProductNotFound  = &Error{Kind: KindNotFound, Message: "product not found"}

	ErrCouponInactive       = &Error{Kind: KindRuleViolation, Reason: ReasonInactive, Message: "coupon is not active"}
	ErrCouponNotStarted     = &Error{Kind: KindRuleViolation, Reason: ReasonNotStarted, Message: "coupon is not valid yet"}
	ErrCouponExpired        = &Error{Kind: KindRuleViolation, Reason: ReasonExpired, Message: "coupon has expired"}
	ErrUsageLimitReached    = &Error{Kind: KindRuleViolation, Reason: ReasonLimitReached, Message: "coupon usage limit reached"}
	ErrCustomerNotEligible  = &Error{Kind: KindRuleViolation, Reason: ReasonNotEligible, Message: "customer is not eligible for this coupon"}
	ErrBelowMinimumPurchase = &Error{Kind: KindRuleViolation, Reason: ReasonBelowMinimum, Message: "cart total is below the minimum purchase amount"}
	ErrCouponNotApplicable  = &Error{Kind: KindRuleViolation, Reason: ReasonNotApplicable, Message: "coupon does not apply to these products"}

	ErrCodeAlreadyExists = &Error{Kind: KindValidation, Message: "coupon code already exists in this store"}
)
