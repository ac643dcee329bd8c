// internal/service/provisioning/port/stores.go
package port

import (
	"context"
	"time"
)

// Document 是文档库里的一条记录。
type Document struct {
	Collection string
	ID         string
	Fields     map[string]interface{}
}

// QueryOptions 控制分页与排序。
type QueryOptions struct {
	Limit   int
	Offset  int
	OrderBy string
}

// QueryResult 是一次查询的结果页。
type QueryResult struct {
	Documents []*Document
	Total     int64
}

// DocumentStore 是文档库的窄接口。Delete 对不存在的文档不报错。
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Create(ctx context.Context, collection, id string, fields map[string]interface{}) (*Document, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters map[string]interface{}, opts QueryOptions) (*QueryResult, error)
}

// URLKind 是 blob 链接的用途。
type URLKind string

const (
	URLView     URLKind = "view"
	URLDownload URLKind = "download"
	URLPreview  URLKind = "preview"
)

// BlobStore 是对象存储的窄接口。Delete 对不存在的对象不报错。
type BlobStore interface {
	Upload(ctx context.Context, bucket string, data []byte) (string, error)
	Delete(ctx context.Context, bucket, id string) error
	URLFor(bucket, id string, kind URLKind) string
}

// TeamDirectory 管理访问控制用的团队资源。
type TeamDirectory interface {
	Create(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, id string) error
}

// Clock 注入时间来源。
type Clock interface {
	Now() time.Time
}

// ReconcileAlert 描述一次回滚中删不掉的资源，等待人工对账。
type ReconcileAlert struct {
	Operation string    `json:"operation"`
	Kind      string    `json:"kind"`
	Locator   string    `json:"locator"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

// AlertSink 把对账告警送出去（Kafka → 运维网关）。发布失败只能记日志。
type AlertSink interface {
	Publish(ctx context.Context, alert ReconcileAlert) error
}
