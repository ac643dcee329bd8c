// internal/service/provisioning/application/provisioner.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/provisioning/domain"
	"bazaar/internal/service/provisioning/port"
	"bazaar/internal/service/provisioning/saga"
)

// CatalogProvisioner 编排所有跨多个资源库的创建流程。
// 每个流程开一个补偿日志，子步骤成功即登记；任何一步失败就按
// 逆序清理，再把 ProvisioningError 抛给调用方——调用方永远
// 不会看到“部分成功”。
type CatalogProvisioner struct {
	docs   port.DocumentStore
	blobs  port.BlobStore
	teams  port.TeamDirectory
	alerts port.AlertSink
	clock  port.Clock
	tracer trace.Tracer

	// 单次流程的兜底超时；外部调用卡死也要能触发回滚
	opTimeout time.Duration
}

// NewCatalogProvisioner 组装编排器。opTimeout<=0 时取 30s。
func NewCatalogProvisioner(docs port.DocumentStore, blobs port.BlobStore, teams port.TeamDirectory, alerts port.AlertSink, clock port.Clock, tracer trace.Tracer, opTimeout time.Duration) *CatalogProvisioner {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &CatalogProvisioner{
		docs:      docs,
		blobs:     blobs,
		teams:     teams,
		alerts:    alerts,
		clock:     clock,
		tracer:    tracer,
		opTimeout: opTimeout,
	}
}

func (p *CatalogProvisioner) newSaga(operation string) *saga.Saga {
	return saga.New(operation, p.docs, p.blobs, p.teams, p.alerts, p.clock)
}

// CreateProduct 创建商品及其全部附属资源：
// 图片（并发上传）→ 商品文档 → 变体 → 变体选项 → 组合（并发）→ 组合值。
func (p *CatalogProvisioner) CreateProduct(ctx context.Context, spec *domain.ProductSpec) (*domain.CreatedProduct, error) {
	ctx, span := p.tracer.Start(ctx, "provisioning.CreateProduct")
	defer span.End()
	span.SetAttributes(
		attribute.String("store.id", spec.StoreID),
		attribute.Int("images", len(spec.Images)),
		attribute.Int("combinations", len(spec.Combinations)),
	)

	if spec.StoreID == "" || spec.Name == "" {
		return nil, domain.NewValidationError("product requires store id and name")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	sg := p.newSaga("create_product")
	result, err := p.createProduct(ctx, sg, spec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product provisioning failed")
		// 回滚要用不可取消的上下文：超时本身就可能是失败原因
		sg.Rollback(context.WithoutCancel(ctx))
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("product", result.ProductID).
		Int("images", len(result.ImageIDs)).
		Msg("product provisioned")
	return result, nil
}

func (p *CatalogProvisioner) createProduct(ctx context.Context, sg *saga.Saga, spec *domain.ProductSpec) (*domain.CreatedProduct, error) {
	const op = "create_product"

	// 1. 图片并发上传。每张图成功后立刻登记，再继续后面的步骤。
	imageIDs := make([]string, len(spec.Images))
	g, gctx := errgroup.WithContext(ctx)
	for i := range spec.Images {
		g.Go(func() error {
			id, err := p.blobs.Upload(gctx, domain.BucketProductImages, spec.Images[i].Data)
			if err != nil {
				return err
			}
			sg.TrackFile(domain.BucketProductImages, id)
			imageIDs[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.NewProvisioningError(op, "upload_images", err)
	}

	// 2. 商品文档
	productID := uuid.New().String()
	fields := map[string]interface{}{
		"storeId":     spec.StoreID,
		"name":        spec.Name,
		"description": spec.Description,
		"basePrice":   spec.BasePrice,
		"categoryId":  spec.CategoryID,
		"imageIds":    imageIDs,
		"createdAt":   p.clock.Now(),
	}
	if _, err := p.docs.Create(ctx, domain.CollProducts, productID, fields); err != nil {
		return nil, domain.NewProvisioningError(op, "create_product_document", err)
	}
	sg.TrackDocument(domain.CollProducts, productID)

	// 3. 变体与选项（顺序创建：组合值要引用它们的 ID）
	variantIDs := make([]string, 0, len(spec.Variants))
	variantIDByName := make(map[string]string, len(spec.Variants))
	for _, v := range spec.Variants {
		variantID := uuid.New().String()
		_, err := p.docs.Create(ctx, domain.CollVariants, variantID, map[string]interface{}{
			"productId": productID,
			"name":      v.Name,
		})
		if err != nil {
			return nil, domain.NewProvisioningError(op, "create_variant", err)
		}
		sg.TrackDocument(domain.CollVariants, variantID)
		variantIDs = append(variantIDs, variantID)
		variantIDByName[v.Name] = variantID

		for _, opt := range v.Options {
			optionID := uuid.New().String()
			_, err := p.docs.Create(ctx, domain.CollVariantOptions, optionID, map[string]interface{}{
				"variantId": variantID,
				"productId": productID,
				"value":     opt,
			})
			if err != nil {
				return nil, domain.NewProvisioningError(op, "create_variant_option", err)
			}
			sg.TrackDocument(domain.CollVariantOptions, optionID)
		}
	}

	// 4. 组合并发创建；每个组合内部仍是 图片 → 文档 → 值 的顺序
	combinationIDs := make([]string, len(spec.Combinations))
	g2, gctx2 := errgroup.WithContext(ctx)
	for i := range spec.Combinations {
		g2.Go(func() error {
			combo := spec.Combinations[i]

			var comboImageID string
			if combo.Image != nil {
				id, err := p.blobs.Upload(gctx2, domain.BucketProductImages, combo.Image.Data)
				if err != nil {
					return err
				}
				sg.TrackFile(domain.BucketProductImages, id)
				comboImageID = id
			}

			comboID := uuid.New().String()
			_, err := p.docs.Create(gctx2, domain.CollCombinations, comboID, map[string]interface{}{
				"productId": productID,
				"price":     combo.Price,
				"stock":     combo.Stock,
				"imageId":   comboImageID,
			})
			if err != nil {
				return err
			}
			sg.TrackDocument(domain.CollCombinations, comboID)
			combinationIDs[i] = comboID

			for variantName, value := range combo.Options {
				valueID := uuid.New().String()
				_, err := p.docs.Create(gctx2, domain.CollCombinationValues, valueID, map[string]interface{}{
					"combinationId": comboID,
					"productId":     productID,
					"variantId":     variantIDByName[variantName],
					"value":         value,
				})
				if err != nil {
					return err
				}
				sg.TrackDocument(domain.CollCombinationValues, valueID)
			}
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, domain.NewProvisioningError(op, "create_combinations", err)
	}

	urls := make([]string, len(imageIDs))
	for i, id := range imageIDs {
		urls[i] = p.blobs.URLFor(domain.BucketProductImages, id, port.URLView)
	}

	return &domain.CreatedProduct{
		ProductID:      productID,
		ImageIDs:       imageIDs,
		ImageURLs:      urls,
		VariantIDs:     variantIDs,
		CombinationIDs: combinationIDs,
	}, nil
}

// CreateCategory 创建分类：可选图标 → 分类文档 → 可选运营团队。
func (p *CatalogProvisioner) CreateCategory(ctx context.Context, spec *domain.CategorySpec) (*domain.CreatedCategory, error) {
	ctx, span := p.tracer.Start(ctx, "provisioning.CreateCategory")
	defer span.End()

	if spec.Name == "" {
		return nil, domain.NewValidationError("category requires a name")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	const op = "create_category"
	sg := p.newSaga(op)

	result, err := func() (*domain.CreatedCategory, error) {
		out := &domain.CreatedCategory{}

		if spec.Icon != nil {
			iconID, err := p.blobs.Upload(ctx, domain.BucketCategoryIcons, spec.Icon.Data)
			if err != nil {
				return nil, domain.NewProvisioningError(op, "upload_icon", err)
			}
			sg.TrackFile(domain.BucketCategoryIcons, iconID)
			out.IconID = iconID
			out.IconURL = p.blobs.URLFor(domain.BucketCategoryIcons, iconID, port.URLView)
		}

		categoryID := uuid.New().String()
		_, err := p.docs.Create(ctx, domain.CollCategories, categoryID, map[string]interface{}{
			"name":     spec.Name,
			"parentId": spec.ParentID,
			"iconId":   out.IconID,
		})
		if err != nil {
			return nil, domain.NewProvisioningError(op, "create_category_document", err)
		}
		sg.TrackDocument(domain.CollCategories, categoryID)
		out.CategoryID = categoryID

		if spec.WithTeam {
			teamID, err := p.teams.Create(ctx, "category:"+spec.Name)
			if err != nil {
				return nil, domain.NewProvisioningError(op, "create_team", err)
			}
			sg.TrackTeam(teamID)
			out.TeamID = teamID
		}
		return out, nil
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "category provisioning failed")
		sg.Rollback(context.WithoutCancel(ctx))
		return nil, err
	}
	return result, nil
}

// CreateCollection 创建合辑：可选封面 → 合辑文档。
func (p *CatalogProvisioner) CreateCollection(ctx context.Context, spec *domain.CollectionSpec) (*domain.CreatedCollection, error) {
	ctx, span := p.tracer.Start(ctx, "provisioning.CreateCollection")
	defer span.End()

	if spec.StoreID == "" || spec.Name == "" {
		return nil, domain.NewValidationError("collection requires store id and name")
	}

	ctx, cancel := context.WithTimeout(ctx, p.opTimeout)
	defer cancel()

	const op = "create_collection"
	sg := p.newSaga(op)

	result, err := func() (*domain.CreatedCollection, error) {
		out := &domain.CreatedCollection{}

		if spec.Cover != nil {
			coverID, err := p.blobs.Upload(ctx, domain.BucketCollectionCovers, spec.Cover.Data)
			if err != nil {
				return nil, domain.NewProvisioningError(op, "upload_cover", err)
			}
			sg.TrackFile(domain.BucketCollectionCovers, coverID)
			out.CoverID = coverID
			out.CoverURL = p.blobs.URLFor(domain.BucketCollectionCovers, coverID, port.URLView)
		}

		collectionID := uuid.New().String()
		_, err := p.docs.Create(ctx, domain.CollCollections, collectionID, map[string]interface{}{
			"storeId":    spec.StoreID,
			"name":       spec.Name,
			"coverId":    out.CoverID,
			"productIds": spec.ProductIDs,
		})
		if err != nil {
			return nil, domain.NewProvisioningError(op, "create_collection_document", err)
		}
		sg.TrackDocument(domain.CollCollections, collectionID)
		out.CollectionID = collectionID
		return out, nil
	}()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collection provisioning failed")
		sg.Rollback(context.WithoutCancel(ctx))
		return nil, err
	}
	return result, nil
}
