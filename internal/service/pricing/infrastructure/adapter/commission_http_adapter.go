// internal/service/pricing/infrastructure/adapter/commission_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/url"

	"bazaar/internal/pkg/httpclient"
)

// CommissionHTTPAdapter 调用外部联盟/分佣服务获取佣金。
// 对定价域来说佣金是不透明输入，这里只是把它取回来。
type CommissionHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewCommissionHTTPAdapter(client *httpclient.Client, baseURL string) *CommissionHTTPAdapter {
	return &CommissionHTTPAdapter{client: client, baseURL: baseURL}
}

// CommissionFor 实现 port.CommissionService。
func (a *CommissionHTTPAdapter) CommissionFor(ctx context.Context, productID string, price float64) (float64, error) {
	params := url.Values{}
	params.Set("product_id", productID)
	params.Set("price", fmt.Sprintf("%f", price))

	var resp struct {
		Commission float64 `json:"commission"`
	}
	if err := a.client.GetJSON(ctx, a.baseURL+"/commission", params, &resp); err != nil {
		return 0, fmt.Errorf("commission service call failed: %w", err)
	}
	return resp.Commission, nil
}

// StaticCommission 是缺省实现：没接分佣服务时恒返回固定值（通常是 0）。
type StaticCommission struct {
	Amount float64
}

func (s StaticCommission) CommissionFor(ctx context.Context, productID string, price float64) (float64, error) {
	return s.Amount, nil
}
