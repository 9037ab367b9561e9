// Package runtime composes the webhook core: classify, normalize,
// resolve scope, build collaborators, dispatch, journal.
package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wappahq/wappa/internal/cache"
	"github.com/wappahq/wappa/internal/collab"
	"github.com/wappahq/wappa/internal/config"
	"github.com/wappahq/wappa/internal/dispatch"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/journal"
	"github.com/wappahq/wappa/internal/messenger"
	"github.com/wappahq/wappa/internal/tenant"
	"github.com/wappahq/wappa/internal/webhook"
)

// App owns the long-lived pieces of the webhook core. One App serves all
// tenants for the process lifetime.
type App struct {
	registry   *tenant.Registry
	backend    cache.Backend
	factory    *collab.Factory
	dispatcher *dispatch.Dispatcher
	journal    *journal.Journal
	logger     *slog.Logger
	tracer     trace.Tracer
}

type options struct {
	backend    cache.Backend
	logger     *slog.Logger
	clientOpts []messenger.ClientOption
}

// Option customizes App construction.
type Option func(*options)

// WithBackend substitutes the cache backend, bypassing cache.NewBackend.
// Tests use this to avoid process-wide side effects.
func WithBackend(b cache.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMessengerOptions forwards options to every pooled messenger client.
func WithMessengerOptions(opts ...messenger.ClientOption) Option {
	return func(o *options) { o.clientOpts = append(o.clientOpts, opts...) }
}

// New builds an App from configuration and the user-supplied handler.
func New(cfg *config.Config, h dispatch.Handler, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := tenant.NewRegistry(cfg.Tenants)
	if err != nil {
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		backend, err = cache.NewBackend(cfg.Cache)
		if err != nil {
			return nil, err
		}
	}

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
	}

	return &App{
		registry: registry,
		backend:  backend,
		factory:  collab.NewFactory(registry, backend, cfg.Messenger, o.clientOpts...),
		dispatcher: dispatch.NewDispatcher(h,
			dispatch.WithTimeout(cfg.Dispatch.Timeout),
			dispatch.WithLockWait(cfg.Dispatch.LockWait),
			dispatch.WithLogger(logger),
		),
		journal: jnl,
		logger:  logger,
		tracer:  otel.Tracer("wappa/runtime"),
	}, nil
}

// Registry exposes the tenant registry to the HTTP boundary (webhook
// verification and signature checks need tenant credentials).
func (a *App) Registry() *tenant.Registry { return a.registry }

// Journal exposes the dispatch journal; nil when journaling is disabled.
func (a *App) Journal() *journal.Journal { return a.journal }

// HandleInbound runs one raw webhook delivery end to end and always
// returns a terminal result, quickly enough for the HTTP layer to
// acknowledge within the provider's delivery timeout.
//
// Errors during classify/normalize/resolve never reach the handler; they
// terminate the dispatch with the corresponding outcome.
func (a *App) HandleInbound(ctx context.Context, routeTenantID string, body []byte) dispatch.Result {
	ctx, span := a.tracer.Start(ctx, "wappa.handle_inbound",
		trace.WithAttributes(attribute.String("tenant.id", routeTenantID)))
	defer span.End()

	start := time.Now()
	rec := journal.Entry{TenantID: routeTenantID}
	defer func() {
		rec.Duration = time.Since(start)
		a.journal.Record(ctx, rec)
	}()

	finish := func(res dispatch.Result) dispatch.Result {
		rec.Outcome = res.Outcome
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		span.SetAttributes(attribute.String("dispatch.outcome", string(res.Outcome)))
		return res
	}

	kind, err := webhook.Classify(body)
	if err != nil {
		a.logger.Warn("payload rejected",
			slog.String("tenant_id", routeTenantID),
			slog.String("error", err.Error()),
		)
		return finish(dispatch.Result{Outcome: dispatch.OutcomeRejected, Err: err})
	}
	rec.Kind = kind

	ev, err := webhook.Normalize(body, kind, routeTenantID)
	if err != nil {
		a.logger.Warn("payload rejected",
			slog.String("tenant_id", routeTenantID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return finish(dispatch.Result{Outcome: dispatch.OutcomeRejected, Err: err})
	}
	rec.EventID = ev.EventID()

	route, ok := a.registry.Get(routeTenantID)
	if !ok {
		return finish(dispatch.Result{
			Outcome: dispatch.OutcomeRejected,
			Err:     &domain.ClassificationError{Reason: "unknown tenant " + routeTenantID},
		})
	}

	tc, err := tenant.Resolve(ev, route)
	if err != nil {
		var ctxErr *domain.ContextError
		if errors.As(err, &ctxErr) {
			a.logger.Error("tenant mismatch",
				slog.String("tenant_id", routeTenantID),
				slog.String("payload_number", ctxErr.PayloadNumber),
			)
			return finish(dispatch.Result{Outcome: dispatch.OutcomeMismatch, Err: err})
		}
		return finish(dispatch.Result{Outcome: dispatch.OutcomeRejected, Err: err})
	}
	rec.UserID = tc.UserID

	bundle, err := a.factory.Create(tc)
	if err != nil {
		a.logger.Error("collaborators unavailable",
			slog.String("tenant_id", tc.TenantID),
			slog.String("error", err.Error()),
		)
		return finish(dispatch.Result{Outcome: dispatch.OutcomeUnavailable, Err: err})
	}

	return finish(a.dispatcher.Dispatch(ctx, ev, tc, bundle))
}

// Close releases the App's resources.
func (a *App) Close() error {
	err := a.backend.Close()
	if jerr := a.journal.Close(); err == nil {
		err = jerr
	}
	return err
}
