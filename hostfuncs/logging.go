package hostfuncs

import (
	"context"
	"log/slog"

	vflog "github.com/reglet-dev/vfpython/log"
)

// LogMessageResponse acknowledges a log_message call.
type LogMessageResponse struct {
	Error *ErrorResponse `json:"error,omitempty"`
}

// PerformLogMessage re-emits a guest record through logger.
func PerformLogMessage(ctx context.Context, logger *slog.Logger, msg vflog.LogMessageWire) LogMessageResponse {
	if err := msg.Emit(ctx, logger); err != nil {
		e := NewInternalError(err.Error())
		return LogMessageResponse{Error: &e}
	}
	return LogMessageResponse{}
}
