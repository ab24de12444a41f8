// Package filter drives one user filter class through the stages of a video
// filter: init, format query, output configuration, per-frame calls and close.
package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/reglet-dev/vfpython/application/config"
	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/domain/ports"
	"github.com/reglet-dev/vfpython/host"
	"github.com/reglet-dev/vfpython/infrastructure/frames"
)

// jobs is the number of frames in flight per filter. Guest calls are
// serialized by the runtime, so the dispatcher never slices a frame.
const jobs = 1

// Filter is an initialized filter instance.
type Filter struct {
	cfg      entities.FilterConfig
	id       uuid.UUID
	rt       *host.Runtime
	obj      *host.FilterObject
	alloc    ports.FrameAllocator
	catalog  ports.FormatCatalog
	logger   *slog.Logger
	sem      *semaphore.Weighted
	fallback entities.PixelFormat

	mu      sync.Mutex
	formats entities.FormatList
	closed  bool
}

type filterConfig struct {
	process  *host.Process
	alloc    ports.FrameAllocator
	logger   *slog.Logger
	hostOpts []host.Option
}

func defaultFilterConfig() filterConfig {
	return filterConfig{
		process: host.DefaultProcess,
		logger:  slog.Default(),
	}
}

// Option configures New.
type Option func(*filterConfig)

// WithProcess sets the process guard the runtime is started on.
func WithProcess(p *host.Process) Option {
	return func(c *filterConfig) {
		c.process = p
	}
}

// WithAllocator overrides the allocator named in the configuration.
func WithAllocator(a ports.FrameAllocator) Option {
	return func(c *filterConfig) {
		c.alloc = a
	}
}

// WithLogger sets the logger. The filter adds its id and class.
func WithLogger(l *slog.Logger) Option {
	return func(c *filterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHostOptions passes extra options to host.Process.Start.
func WithHostOptions(opts ...host.Option) Option {
	return func(c *filterConfig) {
		c.hostOpts = append(c.hostOpts, opts...)
	}
}

// New validates cfg, starts (or shares) the interpreter, loads the script
// and instantiates the filter class. Any failure leaves nothing running.
func New(ctx context.Context, cfg entities.FilterConfig, opts ...Option) (*Filter, error) {
	c := defaultFilterConfig()
	for _, opt := range opts {
		opt(&c)
	}
	cfg.ApplyDefaults()
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	id := uuid.New()
	logger := c.logger.With("filter_id", id.String(), "class", cfg.Class)

	alloc := c.alloc
	if alloc == nil {
		a, err := frames.New(cfg.Allocator)
		if err != nil {
			return nil, &domainerrors.ConfigError{Field: "allocator", Err: err}
		}
		alloc = a
	}

	hostOpts := []host.Option{host.WithLogger(c.logger)}
	if cfg.Home != "" {
		hostOpts = append(hostOpts, host.WithHome(cfg.Home))
	}
	if len(cfg.SearchPaths) > 0 {
		hostOpts = append(hostOpts, host.WithSearchPaths(cfg.SearchPaths...))
	}
	hostOpts = append(hostOpts, c.hostOpts...)

	rt, err := c.process.Start(ctx, cfg.Library, hostOpts...)
	if err != nil {
		return nil, err
	}

	f := &Filter{
		cfg:     cfg,
		id:      id,
		rt:      rt,
		alloc:   alloc,
		catalog: rt.Catalog(),
		logger:  logger,
		sem:     semaphore.NewWeighted(jobs),
	}
	desc, ok := f.catalog.ByName(cfg.DefaultFormat)
	if !ok {
		_ = rt.Close()
		return nil, &domainerrors.ConfigError{Field: "default_format", Err: fmt.Errorf("unknown pixel format %q", cfg.DefaultFormat)}
	}
	f.fallback = desc.ID

	err = rt.Do(ctx, func(s *host.Session) error {
		mod, err := s.LoadModule(cfg.Script)
		if err != nil {
			return err
		}
		defer s.Release(mod)
		f.obj, err = s.Instantiate(mod, cfg.Class, cfg.InitArg)
		return err
	})
	if err != nil {
		logger.Error("filter init failed", append([]any{"script", cfg.Script}, errorAttrs(err)...)...)
		_ = rt.Close()
		return nil, err
	}

	logger.Info("filter initialized", "script", cfg.Script)
	return f, nil
}

// ID returns the instance id carried by every log record of the filter.
func (f *Filter) ID() uuid.UUID {
	return f.id
}

// Config returns the effective configuration.
func (f *Filter) Config() entities.FilterConfig {
	return f.cfg
}

// Allocator returns the allocator output frames come from. Frames returned
// by FilterFrame go back through Release.
func (f *Filter) Allocator() ports.FrameAllocator {
	return f.alloc
}

// Runtime returns the interpreter the filter runs on.
func (f *Filter) Runtime() *host.Runtime {
	return f.rt
}

// QueryFormats asks the filter for its supported formats. The result is
// cached for the life of the filter.
func (f *Filter) QueryFormats(ctx context.Context) (entities.FormatList, error) {
	f.mu.Lock()
	if f.formats != nil {
		defer f.mu.Unlock()
		return f.formats, nil
	}
	f.mu.Unlock()

	var list entities.FormatList
	err := f.dispatch(ctx, func(s *host.Session) error {
		var err error
		list, err = s.QueryFormats(f.obj, f.fallback)
		return err
	})
	if err != nil {
		f.logger.Error("format query failed", errorAttrs(err)...)
		return nil, err
	}

	f.mu.Lock()
	f.formats = list
	f.mu.Unlock()
	f.logger.Debug("formats negotiated", "formats", list.String())
	return list, nil
}

// ConfigOutput returns the output frame size for the given input size.
func (f *Filter) ConfigOutput(inW, inH int) (int, int) {
	w, h := f.cfg.OutputSize(inW, inH)
	f.logger.Debug("output configured", "in_w", inW, "in_h", inH, "out_w", w, "out_h", h)
	return w, h
}

// FilterFrame runs the filter on in and returns a newly allocated output
// frame of the same format. The caller keeps ownership of in. A guest
// interrupt is re-raised in the host and the frame is dropped.
func (f *Filter) FilterFrame(ctx context.Context, in *entities.Frame) (*entities.Frame, error) {
	desc, ok := f.catalog.Descriptor(in.Format)
	if !ok {
		return nil, fmt.Errorf("input frame has unknown pixel format %d", in.Format)
	}
	w, h := f.cfg.OutputSize(in.Width, in.Height)
	out, err := f.alloc.Allocate(desc, w, h)
	if err != nil {
		return nil, fmt.Errorf("allocate output frame: %w", err)
	}
	out.CopyProps(in)

	var outcome entities.Outcome
	err = f.dispatch(ctx, func(s *host.Session) error {
		outcome = s.Invoke(f.obj, in, out)
		return nil
	})
	if err == nil {
		err = f.settle(outcome)
	}
	if err != nil {
		if rerr := f.Release(out); rerr != nil {
			f.logger.Warn("failed to release output frame", "error", rerr)
		}
		return nil, err
	}
	return out, nil
}

func (f *Filter) settle(o entities.Outcome) error {
	switch o.Kind {
	case entities.OutcomeSuccess:
		return nil
	case entities.OutcomeInterrupt:
		f.logger.Info("filter interrupted, dropping frame", "signal", o.Signal.String())
		if err := f.rt.Router().Reraise(o.Signal); err != nil {
			f.logger.Error("failed to re-raise interrupt", "error", err)
		}
		return o.Err
	default:
		return o.Err
	}
}

// Release returns a frame to the allocator. Frames the guest still exports
// are kept alive instead and freed with the process.
func (f *Filter) Release(frame *entities.Frame) error {
	if f.Retains(frame) {
		f.logger.Debug("frame still exported by the guest, not released", "bytes", frame.Size())
		return nil
	}
	return f.alloc.Release(frame)
}

// Retains reports whether the guest holds on to frame's buffer.
func (f *Filter) Retains(frame *entities.Frame) bool {
	return frame != nil && f.rt.Retains(frame.Buf)
}

// errorAttrs describes err for a log record by its structured type and code.
func errorAttrs(err error) []any {
	d := domainerrors.ToErrorDetail(err)
	attrs := []any{"error", err, "error_type", d.Type}
	if d.Code != "" {
		attrs = append(attrs, "error_code", d.Code)
	}
	return attrs
}

// dispatch runs fn as the filter's single job.
func (f *Filter) dispatch(ctx context.Context, fn func(*host.Session) error) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return &domainerrors.StateError{Op: "dispatch", State: "closed"}
	}
	if err := f.sem.Acquire(ctx, jobs); err != nil {
		return err
	}
	defer f.sem.Release(jobs)
	return f.rt.Do(ctx, fn)
}

// Close destroys the filter object and releases the runtime. Closing twice
// is a no-op.
func (f *Filter) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	// Wait for a frame in flight.
	if err := f.sem.Acquire(context.Background(), jobs); err == nil {
		defer f.sem.Release(jobs)
	}

	var errs []error
	if err := f.obj.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close filter object: %w", err))
	}
	if err := f.rt.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close runtime: %w", err))
	}
	f.logger.Info("filter closed")
	return errors.Join(errs...)
}
