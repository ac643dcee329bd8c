// internal/service/provisioning/infrastructure/gorm_docstore.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"bazaar/internal/service/provisioning/port"
)

// DocumentModel 把任意集合的文档统一存为一行：集合名 + 文档 ID +
// JSON 字段包。目录数据结构多变，不值得每个集合建一张表。
type DocumentModel struct {
	PK         uint   `gorm:"primaryKey;autoIncrement"`
	Collection string `gorm:"size:64;uniqueIndex:idx_coll_doc,priority:1;index:idx_coll,priority:1"`
	DocID      string `gorm:"size:64;uniqueIndex:idx_coll_doc,priority:2"`
	Fields     string `gorm:"type:text"`
}

func (DocumentModel) TableName() string { return "catalog_documents" }

// GormDocumentStore 用一张宽表实现文档库端口。
type GormDocumentStore struct {
	db *gorm.DB
}

func NewGormDocumentStore(db *gorm.DB) *GormDocumentStore {
	return &GormDocumentStore{db: db}
}

// AutoMigrateDocuments 建文档表。
func AutoMigrateDocuments(db *gorm.DB) error {
	return db.AutoMigrate(&DocumentModel{})
}

func (s *GormDocumentStore) Get(ctx context.Context, collection, id string) (*port.Document, error) {
	var model DocumentModel
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get document %s/%s", collection, id)
	}
	return toDocument(&model)
}

func (s *GormDocumentStore) Create(ctx context.Context, collection, id string, fields map[string]interface{}) (*port.Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document fields")
	}
	model := DocumentModel{Collection: collection, DocID: id, Fields: string(payload)}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, errors.Wrapf(err, "create document %s/%s", collection, id)
	}
	return &port.Document{Collection: collection, ID: id, Fields: fields}, nil
}

func (s *GormDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) (*port.Document, error) {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("document %s/%s not found", collection, id)
	}
	for k, v := range fields {
		existing.Fields[k] = v
	}
	payload, err := json.Marshal(existing.Fields)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document fields")
	}
	err = s.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("collection = ? AND doc_id = ?", collection, id).
		Update("fields", string(payload)).Error
	if err != nil {
		return nil, errors.Wrapf(err, "update document %s/%s", collection, id)
	}
	return existing, nil
}

// Delete 对不存在的文档静默成功，回滚路径会重复删。
func (s *GormDocumentStore) Delete(ctx context.Context, collection, id string) error {
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		Delete(&DocumentModel{}).Error
	if err != nil {
		return errors.Wrapf(err, "delete document %s/%s", collection, id)
	}
	return nil
}

// Query 按集合取出后在内存里做等值过滤。目录集合的规模撑得住，
// 真到撑不住再给热点字段提列建索引。
func (s *GormDocumentStore) Query(ctx context.Context, collection string, filters map[string]interface{}, opts port.QueryOptions) (*port.QueryResult, error) {
	var models []DocumentModel
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("pk ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrapf(err, "query collection %s", collection)
	}

	matched := make([]*port.Document, 0, len(models))
	for i := range models {
		doc, err := toDocument(&models[i])
		if err != nil {
			return nil, err
		}
		if matchesFilters(doc.Fields, filters) {
			matched = append(matched, doc)
		}
	}

	if opts.OrderBy != "" {
		sortDocuments(matched, opts.OrderBy)
	}

	total := int64(len(matched))
	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[opts.Offset:]
		}
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return &port.QueryResult{Documents: matched, Total: total}, nil
}

func toDocument(model *DocumentModel) (*port.Document, error) {
	fields := map[string]interface{}{}
	if model.Fields != "" {
		if err := json.Unmarshal([]byte(model.Fields), &fields); err != nil {
			return nil, errors.Wrapf(err, "unmarshal document %s/%s", model.Collection, model.DocID)
		}
	}
	return &port.Document{Collection: model.Collection, ID: model.DocID, Fields: fields}, nil
}

// sortDocuments 按字段稳定排序，字段名带 " desc" 后缀表示倒序。
// 过滤在内存里做，排序也只能在内存里做。
func sortDocuments(docs []*port.Document, orderBy string) {
	field, desc := orderBy, false
	if f, ok := strings.CutSuffix(orderBy, " desc"); ok {
		field, desc = f, true
	}
	less := func(i, j int) bool { return fieldLess(docs[i].Fields, docs[j].Fields, field) }
	if desc {
		less = func(i, j int) bool { return fieldLess(docs[j].Fields, docs[i].Fields, field) }
	}
	sort.SliceStable(docs, less)
}

func fieldLess(a, b map[string]interface{}, field string) bool {
	av, aok := a[field]
	bv, bok := b[field]
	if !aok || !bok {
		// 缺字段的文档排到后面
		return aok && !bok
	}
	if af, ok := av.(float64); ok {
		if bf, ok := bv.(float64); ok {
			return af < bf
		}
	}
	return fmt.Sprint(av) < fmt.Sprint(bv)
}

func matchesFilters(fields, filters map[string]interface{}) bool {
	for key, want := range filters {
		got, ok := fields[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
