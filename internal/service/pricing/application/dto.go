// internal/service/pricing/application/dto.go
package application

// ValidateCouponRequest 由接口层解码后传入。
type ValidateCouponRequest struct {
	StoreID    string   `json:"storeId"`
	Code       string   `json:"code"`
	CustomerID string   `json:"customerId,omitempty"`
	CartTotal  *float64 `json:"cartTotal,omitempty"`
	Quantity   int      `json:"quantity,omitempty"`
	ProductIDs []string `json:"productIds,omitempty"`
}

// ValidateCouponResponse 返回解析出的折扣概要，供前端展示。
type ValidateCouponResponse struct {
	Valid        bool    `json:"valid"`
	CouponCodeID string  `json:"couponCodeId"`
	DiscountID   string  `json:"discountId"`
	DiscountName string  `json:"discountName"`
	Message      string  `json:"message"`
	Value        float64 `json:"value"`
	ValueKind    string  `json:"valueKind"`
}

// QuotePriceRequest 请求一次价格分解。
type QuotePriceRequest struct {
	ProductID  string  `json:"productId"`
	StoreID    string  `json:"storeId"`
	BasePrice  float64 `json:"basePrice"`
	Quantity   int     `json:"quantity"`
	CustomerID string  `json:"customerId,omitempty"`
}

// RedeemCouponRequest 核销一张券并返回含券层的价格分解。
type RedeemCouponRequest struct {
	StoreID    string   `json:"storeId"`
	Code       string   `json:"code"`
	CustomerID string   `json:"customerId"`
	OrderID    string   `json:"orderId,omitempty"`
	ProductID  string   `json:"productId"`
	BasePrice  float64  `json:"basePrice"`
	Quantity   int      `json:"quantity"`
	ProductIDs []string `json:"productIds,omitempty"`
}

// RedeemCouponResponse 核销结果。
type RedeemCouponResponse struct {
	Success   bool            `json:"success"`
	UsageID   string          `json:"usageId"`
	Breakdown *PriceBreakdown `json:"breakdown"`
	Message   string          `json:"message"`
}

// CreateCouponCodeRequest 在一个店铺下创建券码。
type CreateCouponCodeRequest struct {
	StoreID    string `json:"storeId"`
	Code       string `json:"code"`
	DiscountID string `json:"discountId"`
}

// CreateCouponCodeResponse 创建结果。
type CreateCouponCodeResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}
