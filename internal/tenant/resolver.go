package tenant

import "github.com/wappahq/wappa/internal/domain"

// Resolve derives the dispatch scope for a normalized event. The tenant
// always comes from the routing layer; the phone-number id embedded in
// the payload is cross-checked against the route tenant's registered
// number, and a mismatch is fatal for the dispatch.
func Resolve(ev domain.Event, route *Tenant) (Context, error) {
	var userID, payloadNumber string

	switch e := ev.(type) {
	case *domain.MessageEvent:
		userID = e.From
		payloadNumber = e.PhoneNumberID
	case *domain.StatusEvent:
		userID = e.RecipientID
		payloadNumber = e.PhoneNumberID
	case *domain.ErrorEvent:
		// Tenant-wide: no user scope.
		payloadNumber = e.PhoneNumberID
	}

	if payloadNumber != "" && route.PhoneNumberID != "" && payloadNumber != route.PhoneNumberID {
		return Context{}, &domain.ContextError{
			RouteTenant:   route.ID,
			PayloadNumber: payloadNumber,
		}
	}

	return Context{TenantID: route.ID, UserID: userID}, nil
}
