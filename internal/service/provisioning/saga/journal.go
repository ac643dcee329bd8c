// internal/service/provisioning/saga/journal.go
package saga

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/metrics"
	"bazaar/internal/service/provisioning/port"
)

// ResourceKind 是补偿日志里资源的类别。
type ResourceKind string

const (
	KindFile     ResourceKind = "file"
	KindDocument ResourceKind = "document"
	KindTeam     ResourceKind = "team"
)

// Entry 是补偿日志里的一项：哪类资源、在哪。
type Entry struct {
	Kind       ResourceKind
	Bucket     string // file 专用
	Collection string // document 专用
	ID         string
}

// Locator 返回可读的资源定位串，用于日志和告警。
func (e Entry) Locator() string {
	switch e.Kind {
	case KindFile:
		return e.Bucket + "/" + e.ID
	case KindDocument:
		return e.Collection + "/" + e.ID
	default:
		return e.ID
	}
}

// Saga 为一次跨多个独立资源库的逻辑创建操作记录补偿日志。
// 每个子步骤成功后立刻 Track*；任何一步失败时 Rollback 按插入
// 的逆序删除（LIFO：依赖者先于被依赖者消失）。成功路径直接丢弃
// 实例即可，没有显式 commit。
//
// 子项会并发扇出创建（商品的 N 张图、M 个组合），所以 Track*
// 必须并发安全：日志用互斥锁保护，插入顺序就是创建顺序。
type Saga struct {
	operation string

	docs   port.DocumentStore
	blobs  port.BlobStore
	teams  port.TeamDirectory
	alerts port.AlertSink
	clock  port.Clock

	mu      sync.Mutex
	entries []Entry
}

// New 为一次逻辑操作打开补偿日志。alerts 可以为 nil（测试场景）。
func New(operation string, docs port.DocumentStore, blobs port.BlobStore, teams port.TeamDirectory, alerts port.AlertSink, clock port.Clock) *Saga {
	return &Saga{
		operation: operation,
		docs:      docs,
		blobs:     blobs,
		teams:     teams,
		alerts:    alerts,
		clock:     clock,
	}
}

// TrackFile 记录一个已上传成功的 blob。只在创建成功后调用，绝不预登记。
func (s *Saga) TrackFile(bucket, fileID string) {
	s.track(Entry{Kind: KindFile, Bucket: bucket, ID: fileID})
}

// TrackDocument 记录一个已创建成功的文档。
func (s *Saga) TrackDocument(collection, documentID string) {
	s.track(Entry{Kind: KindDocument, Collection: collection, ID: documentID})
}

// TrackTeam 记录一个已创建成功的团队。
func (s *Saga) TrackTeam(teamID string) {
	s.track(Entry{Kind: KindTeam, ID: teamID})
}

func (s *Saga) track(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

// Rollback 按逆序删除全部已登记资源。尽力而为：单项删除失败只记录、
// 告警、继续删下一项，绝不返回错误——一个卡住的资源不能挡住其余清理。
func (s *Saga) Rollback(ctx context.Context) {
	entries := s.Entries()
	if len(entries) == 0 {
		return
	}

	ctx, span := otel.Tracer("provisioning.saga").Start(ctx, "saga.Rollback")
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.operation", s.operation),
		attribute.Int("saga.entries", len(entries)),
	)

	metrics.SagaRollbacks.Inc()
	logger.Ctx(ctx).Warn().
		Str("operation", s.operation).
		Int("entries", len(entries)).
		Msg("compensating partially provisioned resources")

	s.run(ctx, span, entries)
}

// Purge 和 Rollback 用同一个逆序执行器，但语义是计划内的级联删除，
// 不算进回滚指标里。
func (s *Saga) Purge(ctx context.Context) {
	entries := s.Entries()
	if len(entries) == 0 {
		return
	}

	ctx, span := otel.Tracer("provisioning.saga").Start(ctx, "saga.Purge")
	defer span.End()
	span.SetAttributes(
		attribute.String("saga.operation", s.operation),
		attribute.Int("saga.entries", len(entries)),
	)

	s.run(ctx, span, entries)
}

func (s *Saga) run(ctx context.Context, span trace.Span, entries []Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		if err := s.deleteEntry(ctx, entry); err != nil {
			// 留下的孤儿资源只能人工对账；原始错误不能被这里掩盖
			span.RecordError(err)
			metrics.OrphanedResources.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("operation", s.operation).
				Str("kind", string(entry.Kind)).
				Str("locator", entry.Locator()).
				Msg("rollback deletion failed, resource needs manual reconcile")
			s.alert(ctx, entry, err)
		}
	}
}

// Reset 清空日志，便于复用同一个 saga 实例。
func (s *Saga) Reset() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}

// Entries 返回当前日志的副本（创建顺序）。
func (s *Saga) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Saga) deleteEntry(ctx context.Context, e Entry) error {
	switch e.Kind {
	case KindFile:
		return s.blobs.Delete(ctx, e.Bucket, e.ID)
	case KindDocument:
		return s.docs.Delete(ctx, e.Collection, e.ID)
	case KindTeam:
		return s.teams.Delete(ctx, e.ID)
	default:
		return fmt.Errorf("unknown resource kind %q", e.Kind)
	}
}

func (s *Saga) alert(ctx context.Context, e Entry, cause error) {
	if s.alerts == nil {
		return
	}
	alert := port.ReconcileAlert{
		Operation: s.operation,
		Kind:      string(e.Kind),
		Locator:   e.Locator(),
		Error:     cause.Error(),
		At:        s.clock.Now(),
	}
	if err := s.alerts.Publish(ctx, alert); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to publish reconcile alert")
	}
}
