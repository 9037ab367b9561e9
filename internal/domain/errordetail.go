package domain

// transientCodes are provider error codes known to clear on their own,
// e.g. rate limiting or temporary service degradation. See the Cloud API
// error code reference.
var transientCodes = map[int]struct{}{
	130429: {}, // rate limit hit
	131048: {}, // spam rate limit
	131056: {}, // pair rate limit
	131057: {}, // account in maintenance mode
	133016: {}, // registration/deregistration temporarily blocked
}

// ErrorDetail is one provider-reported error, carried by status receipts
// and error notifications.
type ErrorDetail struct {
	Code    int
	Title   string
	Message string
}

// Retryable reports whether the error is known to be transient, i.e. the
// same operation may succeed later without intervention.
func (d ErrorDetail) Retryable() bool {
	_, ok := transientCodes[d.Code]
	return ok
}

// Critical reports whether the error indicates a provider-side failure
// (the 5xx-equivalent range) rather than a problem with the request.
func (d ErrorDetail) Critical() bool {
	if d.Code >= 500 && d.Code < 600 {
		return true
	}
	// 131000 is "something went wrong", 131016 is "service overloaded".
	return d.Code == 131000 || d.Code == 131016
}
