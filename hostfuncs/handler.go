package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// HostFunc is a typed host function.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler accepts a JSON request and returns a JSON response.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler. An empty
// payload decodes as the zero request.
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, &RequestError{Err: err}
			}
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return respBytes, nil
	}
}

// RequestError reports a request payload that could not be decoded.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return "failed to unmarshal request: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
