// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger 包装 zerolog.Logger，补充依赖方要求的 Printf 风格接口。
type Logger struct {
	zerolog.Logger
}

var root = Logger{zerolog.New(os.Stdout).With().Timestamp().Logger()}

// Init 配置全局 logger。service 字段会出现在每一条日志里。
func Init(service string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	root = Logger{zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", service).
		Logger()}
}

// Printf 兼容标准库风格的日志接口（go-zookeeper 的 zk.Logger 等）。
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Info().Msgf(format, v...)
}

// Errorf 同 Printf，按 Error 级别输出（kafka-go 的 ErrorLogger 等）。
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.Error().Msgf(format, v...)
}

// Ctx 返回一个绑定了当前 trace_id/span_id 的 logger。
// 这样日志和 Jaeger 里的链路可以互相跳转。
func Ctx(ctx context.Context) *Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &root
	}
	l := Logger{root.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()}
	return &l
}

// L 返回全局 logger。
func L() *Logger {
	return &root
}
