package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// HandlerRegistry is an immutable collection of named host functions.
// Lookups need no locking.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errors     []error
}

// NewRegistry builds a registry. It fails on empty or duplicate names.
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(FormatsBundle(catalog.Default())),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}

	names := make([]string, 0, len(b.handlers))
	wrapped := make(map[string]ByteHandler, len(b.handlers))
	for name, h := range b.handlers {
		names = append(names, name)
		// The first middleware ends up outermost.
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[name] = h
	}
	sort.Strings(names)

	return &HandlerRegistry{handlers: wrapped, names: names}, nil
}

// Invoke dispatches a call by name. An unknown name yields a NOT_FOUND
// ErrorResponse document, not a Go error.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	return handler(HostContextFrom(ctx, name), payload)
}

// Call is Invoke for callers that can only pass bytes on: a Go error is
// turned into its ErrorResponse document.
func (r *HandlerRegistry) Call(ctx context.Context, name string, payload []byte) []byte {
	resp, err := r.Invoke(ctx, name, payload)
	if err != nil {
		return ErrorResponseFor(err).ToJSON()
	}
	return resp
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *HandlerRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

func (b *registryBuilder) addHandler(name string, handler ByteHandler) {
	switch {
	case name == "":
		b.errors = append(b.errors, fmt.Errorf("handler name cannot be empty"))
	case handler == nil:
		b.errors = append(b.errors, fmt.Errorf("handler %q is nil", name))
	default:
		if _, exists := b.handlers[name]; exists {
			b.errors = append(b.errors, fmt.Errorf("duplicate handler name: %q", name))
			return
		}
		b.handlers[name] = handler
	}
}

// WithByteHandler registers a raw ByteHandler.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		b.addHandler(name, handler)
	}
}

// WithHandler registers a typed host function with JSON encoding.
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		b.addHandler(name, NewJSONHandler(fn))
	}
}

// WithMiddleware adds middleware. The first one added is the outermost.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
