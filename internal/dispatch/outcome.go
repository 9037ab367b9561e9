// Package dispatch routes normalized events to the user-supplied handler
// with per-conversation serialization and partial-failure isolation.
package dispatch

import "net/http"

// Outcome is the terminal result of one dispatch, consumed by the HTTP
// boundary to decide the provider-facing response. Every inbound event
// ends in exactly one outcome; the core never triggers redelivery itself.
type Outcome string

const (
	// OutcomeCompleted means the handler ran to completion (or the event
	// kind had no registered handler, a no-op by contract).
	OutcomeCompleted Outcome = "completed"

	// OutcomeRejected means the payload could not be classified or
	// normalized; no handler was invoked.
	OutcomeRejected Outcome = "rejected"

	// OutcomeMismatch means the payload's tenant did not match the route
	// tenant. Security-relevant; should trigger alerting.
	OutcomeMismatch Outcome = "mismatch"

	// OutcomeUnavailable means collaborators could not be constructed;
	// the caller may invite a provider retry.
	OutcomeUnavailable Outcome = "unavailable"

	// OutcomeHandlerFailed means user code returned an error or panicked.
	// Reported as success to the provider so a poison message is not
	// redelivered forever; the failure is logged with full context.
	OutcomeHandlerFailed Outcome = "handler_failed"

	// OutcomeTimeout means the handler exceeded the dispatch budget and
	// was abandoned (cooperative cancellation).
	OutcomeTimeout Outcome = "timeout"

	// OutcomeBusy means the per-conversation lock could not be acquired
	// within the bounded wait; provider redelivery will retry naturally.
	OutcomeBusy Outcome = "busy"
)

// Result pairs an outcome with the error that produced it, if any.
type Result struct {
	Outcome Outcome
	Err     error
}

// HTTPStatus maps the outcome to the status the webhook endpoint should
// return. Handler failures and timeouts acknowledge with 200: the
// message was received and will not be processed differently on
// redelivery.
func (r Result) HTTPStatus() int {
	switch r.Outcome {
	case OutcomeCompleted, OutcomeHandlerFailed, OutcomeTimeout:
		return http.StatusOK
	case OutcomeRejected:
		return http.StatusBadRequest
	case OutcomeMismatch:
		return http.StatusForbidden
	case OutcomeBusy, OutcomeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
