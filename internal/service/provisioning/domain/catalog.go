// internal/service/provisioning/domain/catalog.go
package domain

// 多资源创建流程的输入与产出。这些类型只描述“要建什么”，
// 怎么建、建失败怎么撤，都在 application 层的 saga 流程里。

// ImageUpload 是一张待上传的图片。
type ImageUpload struct {
	FileName string `json:"fileName"`
	Data     []byte `json:"data"`
}

// VariantSpec 描述一个变体维度（如 颜色），及其可选项（红/蓝）。
type VariantSpec struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// CombinationSpec 是一个具体的变体组合（颜色=红 × 尺码=L），
// 可以带独立价格、库存和图片。
type CombinationSpec struct {
	Options map[string]string `json:"options"`
	Price   float64           `json:"price"`
	Stock   int               `json:"stock"`
	Image   *ImageUpload      `json:"image,omitempty"`
}

// ProductSpec 是一次商品创建的完整请求。
type ProductSpec struct {
	StoreID      string            `json:"storeId"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	BasePrice    float64           `json:"basePrice"`
	CategoryID   string            `json:"categoryId,omitempty"`
	Images       []ImageUpload     `json:"images"`
	Variants     []VariantSpec     `json:"variants"`
	Combinations []CombinationSpec `json:"combinations"`
}

// CreatedProduct 是创建成功后的资源清单。
type CreatedProduct struct {
	ProductID      string   `json:"productId"`
	ImageIDs       []string `json:"imageIds"`
	ImageURLs      []string `json:"imageUrls"`
	VariantIDs     []string `json:"variantIds"`
	CombinationIDs []string `json:"combinationIds"`
}

// CategorySpec 是分类创建请求：文档 + 可选图标 + 运营团队。
type CategorySpec struct {
	Name     string       `json:"name"`
	ParentID string       `json:"parentId,omitempty"`
	Icon     *ImageUpload `json:"icon,omitempty"`
	// 为 true 时同时创建该分类的运营团队
	WithTeam bool `json:"withTeam,omitempty"`
}

// CreatedCategory 是分类创建结果。
type CreatedCategory struct {
	CategoryID string `json:"categoryId"`
	IconID     string `json:"iconId,omitempty"`
	IconURL    string `json:"iconUrl,omitempty"`
	TeamID     string `json:"teamId,omitempty"`
}

// CollectionSpec 是合辑创建请求。
type CollectionSpec struct {
	StoreID    string       `json:"storeId"`
	Name       string       `json:"name"`
	Cover      *ImageUpload `json:"cover,omitempty"`
	ProductIDs []string     `json:"productIds"`
}

// CreatedCollection 是合辑创建结果。
type CreatedCollection struct {
	CollectionID string `json:"collectionId"`
	CoverID      string `json:"coverId,omitempty"`
	CoverURL     string `json:"coverUrl,omitempty"`
}

// 文档集合与 blob 桶的名字。创建与级联删除两侧必须一致。
const (
	CollProducts          = "products"
	CollVariants          = "product_variants"
	CollVariantOptions    = "variant_options"
	CollCombinations      = "product_combinations"
	CollCombinationValues = "combination_values"
	CollCategories        = "categories"
	CollCollections       = "collections"

	BucketProductImages    = "product-images"
	BucketCategoryIcons    = "category-icons"
	BucketCollectionCovers = "collection-covers"
)
