package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
)

func newTestRegistry(t *testing.T, logger *slog.Logger) *HandlerRegistry {
	t.Helper()
	reg, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(CombineBundles(
			FormatsBundle(catalog.Default()),
			LoggingBundle(logger),
			InfoBundle(HostInfo{Library: "/usr/lib/libpython3.11.so", ABIVersion: 1, FrameHeaderSize: entities.FrameHeaderSize}),
		)),
	)
	require.NoError(t, err)
	return reg
}

func TestBundles_Names(t *testing.T) {
	reg := newTestRegistry(t, nil)
	assert.Equal(t, []string{"host_info", "log_message", "pix_fmt_desc", "pix_fmt_list"}, reg.Names())
}

func TestPixFmtList(t *testing.T) {
	reg := newTestRegistry(t, nil)
	var resp PixFmtListResponse
	require.NoError(t, json.Unmarshal(reg.Call(context.Background(), "pix_fmt_list", nil), &resp))

	lo, hi := catalog.Default().Range()
	assert.Equal(t, lo, resp.Min)
	assert.Equal(t, hi, resp.Max)
	assert.Contains(t, resp.Formats, PixFmtEntry{ID: catalog.RGB24, Name: "rgb24"})
	assert.Len(t, resp.Formats, len(catalog.Default().List()))
}

func TestPixFmtDesc(t *testing.T) {
	reg := newTestRegistry(t, nil)
	call := func(payload string) PixFmtDescResponse {
		var resp PixFmtDescResponse
		require.NoError(t, json.Unmarshal(reg.Call(context.Background(), "pix_fmt_desc", []byte(payload)), &resp))
		return resp
	}

	byName := call(`{"name":"yuv420p"}`)
	require.NotNil(t, byName.Descriptor)
	assert.Equal(t, catalog.YUV420P, byName.Descriptor.ID)
	assert.Equal(t, 3, byName.Descriptor.Planes)

	byID := call(`{"id":2}`)
	require.NotNil(t, byID.Descriptor)
	assert.Equal(t, "rgb24", byID.Descriptor.Name)

	missing := call(`{"id":9999}`)
	require.NotNil(t, missing.Error)
	assert.Equal(t, "NOT_FOUND", missing.Error.Error)

	empty := call(`{}`)
	require.NotNil(t, empty.Error)
	assert.Equal(t, "VALIDATION_ERROR", empty.Error.Error)
}

func TestLogMessage(t *testing.T) {
	var buf bytes.Buffer
	reg := newTestRegistry(t, slog.New(slog.NewTextHandler(&buf, nil)))

	payload := `{"level":"INFO","message":"hello from script","logger":"demo","attrs":[{"key":"frame","type":"int64","value":"3"}]}`
	var resp LogMessageResponse
	require.NoError(t, json.Unmarshal(reg.Call(context.Background(), "log_message", []byte(payload)), &resp))
	assert.Nil(t, resp.Error)
	assert.Contains(t, buf.String(), `msg="hello from script"`)
	assert.Contains(t, buf.String(), "frame=3")
	assert.Contains(t, buf.String(), "logger=demo")
}

func TestHostInfo(t *testing.T) {
	reg := newTestRegistry(t, nil)
	var info HostInfo
	require.NoError(t, json.Unmarshal(reg.Call(context.Background(), "host_info", nil), &info))
	assert.Equal(t, runtime.GOOS, info.GOOS)
	assert.Equal(t, runtime.GOARCH, info.GOARCH)
	assert.Equal(t, entities.FrameHeaderSize, info.FrameHeaderSize)
	assert.Equal(t, "/usr/lib/libpython3.11.so", info.Library)
}
