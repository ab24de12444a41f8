package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler.
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware turns a panicking handler into an INTERNAL_ERROR
// response. A panic must never unwind through the guest's C frames.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs every call at debug level and failures at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			name := "unknown"
			if hc, ok := ctx.(HostContext); ok {
				name = hc.FunctionName()
			}
			start := time.Now()
			resp, err := next(ctx, payload)
			if err != nil {
				logger.WarnContext(ctx, "host function failed", "function", name, "error", err)
				return resp, err
			}
			logger.DebugContext(ctx, "host function completed", "function", name,
				"request_bytes", len(payload), "response_bytes", len(resp), "duration", time.Since(start))
			return resp, nil
		}
	}
}
