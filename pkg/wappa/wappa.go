// Package wappa is the public entry point for building WhatsApp Cloud
// API bots on the webhook core.
//
// A bot supplies a Handler (message handling is mandatory; status and
// error handling are optional interfaces) and receives a tenant-scoped
// Bundle on every invocation:
//
//	type Bot struct{}
//
//	func (Bot) OnMessage(ctx context.Context, ev *wappa.MessageEvent, b *wappa.Bundle) error {
//	    if text, ok := ev.Text(); ok {
//	        _, err := b.Messenger.SendText(ctx, ev.From, "you said: "+text)
//	        return err
//	    }
//	    return nil
//	}
package wappa

import (
	"context"

	"github.com/wappahq/wappa/internal/collab"
	"github.com/wappahq/wappa/internal/config"
	"github.com/wappahq/wappa/internal/dispatch"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/runtime"
)

// Re-exported contracts. The internal packages stay internal; these
// aliases are the supported surface.
type (
	Handler       = dispatch.Handler
	StatusHandler = dispatch.StatusHandler
	ErrorHandler  = dispatch.ErrorHandler
	Result        = dispatch.Result
	Outcome       = dispatch.Outcome

	Bundle = collab.Bundle

	MessageEvent = domain.MessageEvent
	StatusEvent  = domain.StatusEvent
	ErrorEvent   = domain.ErrorEvent

	Config = config.Config
)

const (
	OutcomeCompleted     = dispatch.OutcomeCompleted
	OutcomeRejected      = dispatch.OutcomeRejected
	OutcomeMismatch      = dispatch.OutcomeMismatch
	OutcomeUnavailable   = dispatch.OutcomeUnavailable
	OutcomeHandlerFailed = dispatch.OutcomeHandlerFailed
	OutcomeTimeout       = dispatch.OutcomeTimeout
	OutcomeBusy          = dispatch.OutcomeBusy
)

// App processes inbound webhook deliveries for all configured tenants.
type App struct {
	app *runtime.App
}

// LoadConfig reads config.yaml and WAPPA_ environment overrides.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// New builds an App from configuration and a handler.
func New(cfg *Config, h Handler) (*App, error) {
	app, err := runtime.New(cfg, h)
	if err != nil {
		return nil, err
	}
	return &App{app: app}, nil
}

// HandleInbound runs one raw webhook body end to end for the tenant the
// request was routed to, returning the terminal outcome.
func (a *App) HandleInbound(ctx context.Context, tenantID string, body []byte) Result {
	return a.app.HandleInbound(ctx, tenantID, body)
}

// Runtime exposes the underlying runtime App for server wiring.
func (a *App) Runtime() *runtime.App { return a.app }

// Close releases the App's resources.
func (a *App) Close() error { return a.app.Close() }
