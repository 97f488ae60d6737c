package log

import (
	"context"
	"log/slog"
	"net/http"
)

type requestInfo struct {
	method, path, query, userAgent string
}

func infoOf(r *http.Request, withAgent bool) requestInfo {
	info := requestInfo{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if withAgent {
		info.userAgent = r.Header.Get("User-Agent")
	}
	return info
}

// StructuredLogger writes the fixed-shape events of HTTP requests and
// ledger mutations.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := Fields{FieldClientIP: clientIP}.withHTTPRequest(infoOf(r, true))
	sl.logger.DebugContext(ctx, "HTTP request started", fields.Args()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := Fields{
		FieldStatusCode: statusCode,
		FieldDuration:   durationMs,
		FieldSuccess:    statusCode < 400,
		FieldClientIP:   clientIP,
	}.withHTTPRequest(infoOf(r, false))
	sl.logger.Log(ctx, level, "HTTP request completed", fields.Args()...)
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, userID string, id int64, txType, amount, category string) {
	fields := Fields{FieldUserID: userID, FieldOperation: OpCreate}.
		withTransaction(id, txType, amount, category)
	sl.logger.InfoContext(ctx, "Transaction created", fields.Args()...)
}

// LogError logs err with the operation that failed plus any extra fields.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, extra Fields) {
	fields := Fields{FieldOperation: operation}
	for k, v := range extra {
		fields[k] = v
	}
	if err != nil {
		fields[FieldError] = err.Error()
	}
	sl.logger.ErrorContext(ctx, msg, fields.Args()...)
}
