package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Router receives interrupt signals through os/signal and routes each one
// to the domain that owns the guarded signals when it arrives. While the
// guest owns them the signal is forwarded into the guest as a pending
// interrupt; otherwise it goes to host subscribers, or takes its default
// action when nobody subscribed.
type Router struct {
	forward  func(os.Signal)
	fallback func(os.Signal) error
	logger   *slog.Logger
	subs     map[int]chan<- os.Signal
	ch       chan os.Signal
	done     chan struct{}
	stopped  chan struct{}
	sigs     []os.Signal
	nextID   int
	owner    atomic.Int32
	fwd      atomic.Int64
	mu       sync.Mutex
	running  bool
}

// RouterOption configures a Router.
type RouterOption func(*routerConfig)

type routerConfig struct {
	fallback func(os.Signal) error
	logger   *slog.Logger
	signals  []os.Signal
}

func defaultRouterConfig() routerConfig {
	return routerConfig{
		fallback: reraiseDefault,
		logger:   slog.Default(),
		signals:  []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// WithFallback replaces the default action taken for a host-domain signal
// without subscribers.
func WithFallback(fn func(os.Signal) error) RouterOption {
	return func(c *routerConfig) {
		c.fallback = fn
	}
}

// WithRoutedSignals sets the signals the router listens for.
func WithRoutedSignals(sigs ...os.Signal) RouterOption {
	return func(c *routerConfig) {
		c.signals = append([]os.Signal(nil), sigs...)
	}
}

// WithRouterLogger sets the logger.
func WithRouterLogger(l *slog.Logger) RouterOption {
	return func(c *routerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewRouter creates a stopped router. forward is called for signals that
// arrive while the guest owns the token; it must be safe to call from any
// goroutine.
func NewRouter(forward func(os.Signal), opts ...RouterOption) *Router {
	cfg := defaultRouterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Router{
		forward:  forward,
		fallback: cfg.fallback,
		logger:   cfg.logger,
		sigs:     cfg.signals,
		subs:     make(map[int]chan<- os.Signal),
	}
}

// Start begins receiving signals. It is a no-op on a running router.
func (r *Router) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.ch = make(chan os.Signal, 4)
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	signal.Notify(r.ch, r.sigs...)
	go r.loop(r.ch, r.done, r.stopped)
}

// Stop stops receiving signals and waits for the delivery loop to exit.
func (r *Router) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	signal.Stop(r.ch)
	close(r.done)
	stopped := r.stopped
	r.mu.Unlock()
	<-stopped
}

func (r *Router) loop(ch <-chan os.Signal, done, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case sig := <-ch:
			r.Deliver(sig)
		case <-done:
			return
		}
	}
}

// SetOwner switches the delivery domain.
func (r *Router) SetOwner(d Domain) {
	r.owner.Store(int32(d))
}

// Owner returns the current delivery domain.
func (r *Router) Owner() Domain {
	return Domain(r.owner.Load())
}

// Forwarded returns how many signals were forwarded into the guest.
func (r *Router) Forwarded() int64 {
	return r.fwd.Load()
}

// Deliver routes sig as if it had just arrived.
func (r *Router) Deliver(sig os.Signal) {
	if r.Owner() == GuestDomain && r.forward != nil {
		r.logger.Debug("forwarding signal to guest", "signal", sig.String())
		r.fwd.Add(1)
		r.forward(sig)
		return
	}
	if err := r.Reraise(sig); err != nil {
		r.logger.Error("failed to re-raise signal", "signal", sig.String(), "error", err)
	}
}

// Reraise delivers an interrupt in the host domain: to every subscriber, or
// through the default action when there are none.
func (r *Router) Reraise(sig os.Signal) error {
	r.mu.Lock()
	subs := make([]chan<- os.Signal, 0, len(r.subs))
	for _, ch := range r.subs {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	if len(subs) == 0 {
		r.logger.Debug("no host subscribers, taking default action", "signal", sig.String())
		return r.fallback(sig)
	}
	for _, ch := range subs {
		select {
		case ch <- sig:
		default:
			r.logger.Warn("host signal subscriber is not ready, dropping signal", "signal", sig.String())
		}
	}
	return nil
}

// Subscribe registers ch for host-domain signals. Sends never block. The
// returned function removes the subscription.
func (r *Router) Subscribe(ch chan<- os.Signal) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// NotifyContext is signal.NotifyContext for host-domain signals routed by r.
func (r *Router) NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	unsubscribe := r.Subscribe(ch)
	go func() {
		select {
		case sig := <-ch:
			r.logger.Info("interrupt received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		unsubscribe()
	}()
	return ctx, func() {
		unsubscribe()
		cancel()
	}
}
