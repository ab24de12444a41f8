package hostfuncs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoveryMiddleware(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(func(context.Context, []byte) ([]byte, error) {
		panic("test panic")
	})

	resp, err := wrapped(context.Background(), []byte("{}"))
	require.NoError(t, err)
	e, ok := IsErrorResponse(resp)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", e.Error)
	assert.Equal(t, 500, e.Code)
	assert.Equal(t, "panic: test panic", e.Message)
}

func TestPanicRecoveryMiddleware_NoPanic(t *testing.T) {
	wrapped := PanicRecoveryMiddleware()(func(context.Context, []byte) ([]byte, error) {
		return []byte(`{"result":"ok"}`), nil
	})
	resp, err := wrapped(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"result":"ok"}`, string(resp))
}

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				order = append(order, name+"-before")
				resp, err := next(ctx, payload)
				order = append(order, name+"-after")
				return resp, err
			}
		}
	}
	reg, err := NewRegistry(
		WithMiddleware(tag("mw1"), tag("mw2")),
		WithByteHandler("h", func(context.Context, []byte) ([]byte, error) {
			order = append(order, "handler")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "h", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}, order)
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reg, err := NewRegistry(
		WithMiddleware(LoggingMiddleware(logger)),
		WithByteHandler("ok", echoHandler),
		WithByteHandler("bad", func(context.Context, []byte) ([]byte, error) { return nil, errors.New("boom") }),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), "ok", []byte("x"))
	require.NoError(t, err)
	_, err = reg.Invoke(context.Background(), "bad", nil)
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "host function completed")
	assert.Contains(t, out, "function=ok")
	assert.Contains(t, out, "host function failed")
	assert.Contains(t, out, "function=bad")
}
