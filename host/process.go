package host

import (
	"context"
	"sync"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
)

// Process admits at most one interpreter library at a time. Starting the
// library that is already running hands out another share of its Runtime;
// starting a different one fails without touching the running runtime.
type Process struct {
	rt   *Runtime
	refs int
	mu   sync.Mutex
}

// DefaultProcess is the process-wide guard used by Start.
var DefaultProcess = NewProcess()

// NewProcess returns an empty guard. Tests use their own; programs use
// DefaultProcess.
func NewProcess() *Process {
	return &Process{}
}

// Start starts libPath on DefaultProcess.
func Start(ctx context.Context, libPath string, opts ...Option) (*Runtime, error) {
	return DefaultProcess.Start(ctx, libPath, opts...)
}

// Start opens, binds and initializes the interpreter in libPath, or returns
// a new share of the running runtime when it was started from the same
// library. Every share must be closed; the interpreter is finalized when the
// last one is.
func (p *Process) Start(ctx context.Context, libPath string, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, err := cfg.canonical(libPath)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rt != nil {
		if p.rt.path != canonical {
			return nil, &domainerrors.LibraryConflictError{Loaded: p.rt.path, Requested: canonical}
		}
		p.refs++
		p.rt.logger.Debug("sharing running interpreter", "refs", p.refs)
		return &Runtime{interpreter: p.rt.interpreter}, nil
	}

	lib, err := cfg.opener(canonical)
	if err != nil {
		return nil, err
	}
	api, err := cfg.binder(lib)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	rt, err := newRuntime(canonical, lib, api, &cfg, p)
	if err != nil {
		_ = lib.Close()
		return nil, err
	}
	p.rt, p.refs = rt, 1
	return rt, nil
}

// Current returns the first share of the running runtime, or nil.
func (p *Process) Current() *Runtime {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rt
}

func (p *Process) release(in *interpreter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rt == nil || p.rt.interpreter != in {
		return nil
	}
	p.refs--
	if p.refs > 0 {
		return nil
	}
	rt := p.rt
	p.rt = nil
	return rt.shutdown()
}
