package hostfuncs

import (
	"context"
	"log/slog"

	"github.com/reglet-dev/vfpython/domain/ports"
	vflog "github.com/reglet-dev/vfpython/log"
)

// HostFuncBundle is a set of related host functions registered together.
type HostFuncBundle interface {
	Handlers() map[string]ByteHandler
}

type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// FormatsBundle exposes the pixel format catalog: pix_fmt_list, pix_fmt_desc.
func FormatsBundle(cat ports.FormatCatalog) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"pix_fmt_list": NewJSONHandler(func(ctx context.Context, req PixFmtListRequest) PixFmtListResponse {
				return PerformPixFmtList(ctx, cat, req)
			}),
			"pix_fmt_desc": NewJSONHandler(func(ctx context.Context, req PixFmtDescRequest) PixFmtDescResponse {
				return PerformPixFmtDesc(ctx, cat, req)
			}),
		},
	}
}

// LoggingBundle routes guest log records into logger: log_message.
func LoggingBundle(logger *slog.Logger) HostFuncBundle {
	if logger == nil {
		logger = slog.Default()
	}
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"log_message": NewJSONHandler(func(ctx context.Context, req vflog.LogMessageWire) LogMessageResponse {
				return PerformLogMessage(ctx, logger, req)
			}),
		},
	}
}

// InfoBundle answers host_info with info.
func InfoBundle(info HostInfo) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"host_info": NewJSONHandler(func(ctx context.Context, req HostInfoRequest) HostInfo {
				return PerformHostInfo(ctx, info, req)
			}),
		},
	}
}

type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[string]ByteHandler {
	result := make(map[string]ByteHandler)
	for _, bundle := range b.bundles {
		for name, handler := range bundle.Handlers() {
			result[name] = handler
		}
	}
	return result
}

// CombineBundles merges bundles. Later bundles win on name clashes.
func CombineBundles(bundles ...HostFuncBundle) HostFuncBundle {
	return &compositeBundle{bundles: bundles}
}

// WithBundle registers every handler of bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			b.addHandler(name, handler)
		}
	}
}
