package domain

import "fmt"

// ClassificationError is returned when a raw payload matches none of the
// recognized webhook shapes, or when its discriminators conflict.
// Always terminal for the dispatch; no handler is invoked.
type ClassificationError struct {
	Reason string

	// Excerpt is a bounded prefix of the raw payload for debugging.
	Excerpt string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unclassifiable payload: %s", e.Reason)
}

// NormalizationError is returned when a recognized payload shape is
// missing a required field.
type NormalizationError struct {
	FieldPath string
	Kind      EventKind
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s event: missing required field %q", e.Kind, e.FieldPath)
}

// ContextError is returned when the tenant embedded in the payload does
// not match the tenant the request was routed to. Treated as a
// security-relevant anomaly, never silently resolved.
type ContextError struct {
	RouteTenant   string
	PayloadNumber string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("tenant mismatch: route tenant %q does not own payload number %q", e.RouteTenant, e.PayloadNumber)
}

// CollaboratorError is returned when the per-dispatch collaborators
// (messenger client, cache facades) cannot be constructed.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
