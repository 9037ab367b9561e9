package tenant

import (
	"fmt"

	"github.com/wappahq/wappa/internal/config"
)

// Registry holds the configured tenants. It is populated once at startup
// and read-only afterwards, so lookups need no locking.
type Registry struct {
	byID     map[string]*Tenant
	byNumber map[string]*Tenant
}

// NewRegistry builds a registry from configuration, validating that ids
// and phone-number ids are unique and that credentials are present.
func NewRegistry(configs []config.TenantConfig) (*Registry, error) {
	r := &Registry{
		byID:     make(map[string]*Tenant, len(configs)),
		byNumber: make(map[string]*Tenant, len(configs)),
	}

	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("tenant with phone number %q has no id", cfg.PhoneNumberID)
		}
		if cfg.AccessToken == "" {
			return nil, fmt.Errorf("tenant %s has no access token", cfg.ID)
		}
		if _, dup := r.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate tenant id %s", cfg.ID)
		}

		t := &Tenant{
			ID:            cfg.ID,
			Name:          cfg.Name,
			PhoneNumberID: cfg.PhoneNumberID,
			AccessToken:   cfg.AccessToken,
			AppSecret:     cfg.AppSecret,
			VerifyToken:   cfg.VerifyToken,
		}
		r.byID[t.ID] = t

		if t.PhoneNumberID != "" {
			if _, dup := r.byNumber[t.PhoneNumberID]; dup {
				return nil, fmt.Errorf("duplicate phone_number_id %s", t.PhoneNumberID)
			}
			r.byNumber[t.PhoneNumberID] = t
		}
	}

	return r, nil
}

// Get retrieves a tenant by id.
func (r *Registry) Get(id string) (*Tenant, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// GetByNumber retrieves a tenant by its business phone-number id.
func (r *Registry) GetByNumber(phoneNumberID string) (*Tenant, bool) {
	t, ok := r.byNumber[phoneNumberID]
	return t, ok
}

// Len returns the number of registered tenants.
func (r *Registry) Len() int { return len(r.byID) }
