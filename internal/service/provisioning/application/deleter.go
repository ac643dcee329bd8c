// internal/service/provisioning/application/deleter.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/provisioning/domain"
	"bazaar/internal/service/provisioning/port"
	"bazaar/internal/service/provisioning/saga"
)

// DeleteProduct 级联删除商品及其全部附属资源。
// 做法和回滚是同一套：先按创建顺序把依赖图装进补偿日志，
// 再交给同一个 LIFO 执行器——组合值先于组合消失，组合先于
// 商品消失，单项删除失败告警后继续。
func (p *CatalogProvisioner) DeleteProduct(ctx context.Context, productID string) error {
	ctx, span := p.tracer.Start(ctx, "provisioning.DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID))

	product, err := p.docs.Get(ctx, domain.CollProducts, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return &domain.NotFoundError{Resource: "product", ID: productID}
	}

	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	sg := p.newSaga("delete_product")

	// 1. 商品图片
	for _, imageID := range stringSlice(product.Fields["imageIds"]) {
		sg.TrackFile(domain.BucketProductImages, imageID)
	}

	// 2. 商品文档本身
	sg.TrackDocument(domain.CollProducts, productID)

	// 3. 变体与选项
	if err := p.collectByProduct(ctx, sg, domain.CollVariants, productID); err != nil {
		return err
	}
	if err := p.collectByProduct(ctx, sg, domain.CollVariantOptions, productID); err != nil {
		return err
	}

	// 4. 组合（含组合独立图片）与组合值
	combos, err := p.docs.Query(ctx, domain.CollCombinations,
		map[string]interface{}{"productId": productID}, port.QueryOptions{})
	if err != nil {
		return err
	}
	for _, combo := range combos.Documents {
		if imageID, _ := combo.Fields["imageId"].(string); imageID != "" {
			sg.TrackFile(domain.BucketProductImages, imageID)
		}
		sg.TrackDocument(domain.CollCombinations, combo.ID)
	}
	if err := p.collectByProduct(ctx, sg, domain.CollCombinationValues, productID); err != nil {
		return err
	}

	n := len(sg.Entries())
	sg.Purge(context.WithoutCancel(ctx))

	logger.Ctx(ctx).Info().
		Str("product", productID).
		Int("resources", n).
		Msg("product deleted")
	return nil
}

func (p *CatalogProvisioner) collectByProduct(ctx context.Context, sg *saga.Saga, collection, productID string) error {
	result, err := p.docs.Query(ctx, collection,
		map[string]interface{}{"productId": productID}, port.QueryOptions{})
	if err != nil {
		return err
	}
	for _, doc := range result.Documents {
		sg.TrackDocument(collection, doc.ID)
	}
	return nil
}

// stringSlice 兼容文档字段经 JSON 往返后的两种形态。
func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
