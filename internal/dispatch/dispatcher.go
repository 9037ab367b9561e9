package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wappahq/wappa/internal/collab"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/tenant"
)

// Handler is the user-supplied event handler. Message handling is
// mandatory; status and error handling are optional capabilities
// detected once at construction (see StatusHandler, ErrorHandler).
//
// Handlers must honor ctx cancellation at their I/O suspension points:
// the dispatcher cannot preempt a handler, only abandon it.
type Handler interface {
	OnMessage(ctx context.Context, ev *domain.MessageEvent, b *collab.Bundle) error
}

// StatusHandler is implemented by handlers that want delivery receipts.
type StatusHandler interface {
	OnStatus(ctx context.Context, ev *domain.StatusEvent, b *collab.Bundle) error
}

// ErrorHandler is implemented by handlers that want tenant-level error
// notifications.
type ErrorHandler interface {
	OnError(ctx context.Context, ev *domain.ErrorEvent, b *collab.Bundle) error
}

const (
	defaultTimeout  = 30 * time.Second
	defaultLockWait = 15 * time.Second
)

// Dispatcher invokes the handler for normalized events. Dispatches for
// the same (tenant, user) pair are serialized; everything else runs
// concurrently. Handler failures are contained here and never propagate.
type Dispatcher struct {
	handler  Handler
	onStatus StatusHandler // nil when the handler lacks the capability
	onError  ErrorHandler  // nil when the handler lacks the capability

	locks    *keyLocks
	timeout  time.Duration
	lockWait time.Duration
	logger   *slog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds a single handler invocation.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// WithLockWait bounds the wait for the per-conversation lock.
func WithLockWait(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.lockWait = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(dp *Dispatcher) { dp.logger = l }
}

// NewDispatcher builds a dispatcher around h. The optional capability
// checks happen here, once, producing a fixed dispatch table instead of
// per-event introspection.
func NewDispatcher(h Handler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler:  h,
		locks:    newKeyLocks(),
		timeout:  defaultTimeout,
		lockWait: defaultLockWait,
		logger:   slog.Default(),
	}
	if sh, ok := h.(StatusHandler); ok {
		d.onStatus = sh
	}
	if eh, ok := h.(ErrorHandler); ok {
		d.onError = eh
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one event through the handler and always returns a
// terminal result. The per-key lock is held for the full handler
// invocation, including past a timeout: an abandoned handler keeps its
// conversation serialized until it actually returns.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event, tc tenant.Context, bundle *collab.Bundle) Result {
	invoke := d.route(ev, bundle)
	if invoke == nil {
		// Optional capability not implemented: no-op by contract.
		return Result{Outcome: OutcomeCompleted}
	}

	var release func()
	if !tc.TenantWide() {
		var ok bool
		release, ok = d.locks.acquire(ctx, tc.Key(), d.lockWait)
		if !ok {
			d.logger.Warn("dispatch busy",
				slog.String("tenant_id", tc.TenantID),
				slog.String("user_id", tc.UserID),
				slog.String("event_id", ev.EventID()),
			)
			return Result{Outcome: OutcomeBusy}
		}
	}

	// cancel stays on this side: the worker finishing must not close
	// hctx.Done() and race its own result in the select below. Dispatch
	// returning cancels the context either way, which is what tells an
	// abandoned handler to stop.
	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if release != nil {
			defer release()
		}
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- invoke(hctx)
	}()

	select {
	case err := <-done:
		return d.settle(ev, tc, err)

	case <-hctx.Done():
		// A handler finishing in the same instant the budget expires can
		// leave both cases ready; the result wins over the deadline.
		select {
		case err := <-done:
			return d.settle(ev, tc, err)
		default:
		}
		d.logger.Error("handler timed out",
			slog.String("tenant_id", tc.TenantID),
			slog.String("user_id", tc.UserID),
			slog.String("event_id", ev.EventID()),
			slog.Duration("timeout", d.timeout),
		)
		return Result{Outcome: OutcomeTimeout, Err: hctx.Err()}
	}
}

// settle converts a finished handler invocation into its result.
func (d *Dispatcher) settle(ev domain.Event, tc tenant.Context, err error) Result {
	if err != nil {
		// Caught exactly once, logged exactly once.
		d.logger.Error("handler failed",
			slog.String("tenant_id", tc.TenantID),
			slog.String("user_id", tc.UserID),
			slog.String("event_id", ev.EventID()),
			slog.String("kind", string(ev.Kind())),
			slog.String("error", err.Error()),
		)
		return Result{Outcome: OutcomeHandlerFailed, Err: err}
	}
	return Result{Outcome: OutcomeCompleted}
}

// route selects the handler method for the event variant, or nil when
// the optional capability is absent.
func (d *Dispatcher) route(ev domain.Event, bundle *collab.Bundle) func(context.Context) error {
	switch e := ev.(type) {
	case *domain.MessageEvent:
		return func(ctx context.Context) error { return d.handler.OnMessage(ctx, e, bundle) }
	case *domain.StatusEvent:
		if d.onStatus == nil {
			return nil
		}
		return func(ctx context.Context) error { return d.onStatus.OnStatus(ctx, e, bundle) }
	case *domain.ErrorEvent:
		if d.onError == nil {
			return nil
		}
		return func(ctx context.Context) error { return d.onError.OnError(ctx, e, bundle) }
	default:
		return nil
	}
}
