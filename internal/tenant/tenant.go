// Package tenant holds the tenant registry and request-scope resolution.
package tenant

// Tenant is one business/WhatsApp-number account boundary: the top-level
// isolation unit for cache namespacing and messaging credentials.
type Tenant struct {
	ID            string
	Name          string
	PhoneNumberID string
	AccessToken   string
	AppSecret     string
	VerifyToken   string
}

// Context is the scoping key for all per-request collaborators. It
// carries no mutable state; UserID is empty for tenant-wide events.
type Context struct {
	TenantID string
	UserID   string
}

// Key returns the serialization key used to order dispatches for the
// same conversation.
func (c Context) Key() string {
	return c.TenantID + ":" + c.UserID
}

// TenantWide reports whether the context has no user scope.
func (c Context) TenantWide() bool { return c.UserID == "" }
