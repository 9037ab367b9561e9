// Package collab constructs the per-dispatch collaborator bundle: a
// tenant-scoped messenger plus the three cache facades.
package collab

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wappahq/wappa/internal/cache"
	"github.com/wappahq/wappa/internal/config"
	"github.com/wappahq/wappa/internal/domain"
	"github.com/wappahq/wappa/internal/messenger"
	"github.com/wappahq/wappa/internal/tenant"
)

// Bundle is the set of tenant-scoped handles supplied to one handler
// invocation. It is created at dispatch entry and discarded at dispatch
// exit; handlers must not retain it.
type Bundle struct {
	// Messenger sends outbound messages with this tenant's credentials.
	Messenger messenger.Messenger

	// State holds per-conversation flow state (tenant+user scoped).
	State *cache.Cache

	// User holds per-user profile data (tenant+user scoped).
	User *cache.Cache

	// Table holds tenant-wide lookup data. For tenant-wide events this is
	// the only cache with a meaningful scope.
	Table *cache.Cache
}

// Factory builds bundles. Messenger clients are pooled per tenant in a
// bounded LRU with idle eviction, so a dispatch never pays connection
// setup; cache facades are cheap per-request wrappers over the
// process-wide backend.
type Factory struct {
	registry   *tenant.Registry
	backend    cache.Backend
	cfg        config.MessengerConfig
	clients    *expirable.LRU[string, *messenger.Client]
	clientOpts []messenger.ClientOption
}

// NewFactory creates a factory over the given registry and cache backend.
// clientOpts are applied to every pooled client (tests inject transports).
func NewFactory(registry *tenant.Registry, backend cache.Backend, cfg config.MessengerConfig, clientOpts ...messenger.ClientOption) *Factory {
	size := cfg.PoolSize
	if size <= 0 {
		size = 64
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Factory{
		registry:   registry,
		backend:    backend,
		cfg:        cfg,
		clients:    expirable.NewLRU[string, *messenger.Client](size, nil, ttl),
		clientOpts: clientOpts,
	}
}

// Create builds a bundle scoped to tc. The returned bundle never carries
// another tenant's credentials or key namespace.
func (f *Factory) Create(tc tenant.Context) (*Bundle, error) {
	t, ok := f.registry.Get(tc.TenantID)
	if !ok {
		return nil, &domain.CollaboratorError{Op: "lookup tenant " + tc.TenantID, Err: errUnknownTenant}
	}

	client, ok := f.clients.Get(t.ID)
	if !ok {
		client = messenger.NewClient(f.cfg.BaseURL, f.cfg.APIVersion, t.PhoneNumberID, t.AccessToken, f.clientOpts...)
		f.clients.Add(t.ID, client)
	}

	return &Bundle{
		Messenger: client,
		State:     cache.NewScoped(f.backend, t.ID, cache.KindState, tc.UserID),
		User:      cache.NewScoped(f.backend, t.ID, cache.KindUser, tc.UserID),
		Table:     cache.NewScoped(f.backend, t.ID, cache.KindTable, ""),
	}, nil
}

var errUnknownTenant = unknownTenantError{}

type unknownTenantError struct{}

func (unknownTenantError) Error() string { return "tenant not registered" }
