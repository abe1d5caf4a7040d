// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var root zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	root = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 设置全局日志的服务名和级别。各个 main 在启动时调用一次。
func Init(serviceName string, level zerolog.Level) {
	root = zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个绑定了当前链路 TraceID / SpanID 的 logger。
// 业务代码统一通过它打日志，保证日志和 Jaeger 上的链路能互相检索。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &root
	}
	l := root.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}

// L 返回不带链路信息的全局 logger，仅供启动/关停阶段使用。
func L() *zerolog.Logger {
	return &root
}
