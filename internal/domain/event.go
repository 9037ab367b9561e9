// Package domain defines the normalized event model and the canonical
// error types for the webhook core.
package domain

import (
	"encoding/json"
	"time"
)

// EventKind identifies which of the three webhook shapes an event carries.
type EventKind string

const (
	// KindMessage is an inbound user message.
	KindMessage EventKind = "message"

	// KindStatus is a delivery/read receipt for a previously sent message.
	KindStatus EventKind = "status"

	// KindError is a tenant-level error notification from the provider.
	KindError EventKind = "error"
)

// Event is the closed set of normalized webhook events. Exactly one of
// MessageEvent, StatusEvent, or ErrorEvent implements it per dispatch.
// Events are immutable once constructed; handlers must not mutate them.
type Event interface {
	// Kind returns the concrete variant of this event.
	Kind() EventKind

	// Tenant returns the tenant this event belongs to. Never empty on a
	// dispatched event.
	Tenant() string

	// EventID returns the provider message id the event refers to, or ""
	// for tenant-wide error events.
	EventID() string
}

// ReplyContext carries the id of the message an inbound message replies to.
type ReplyContext struct {
	MessageID string
}

// Referral carries ad/business referral context attached to a message.
type Referral struct {
	SourceURL  string
	SourceType string
	SourceID   string
	Headline   string
	Body       string
}

// MessageEvent is an inbound message from a WhatsApp user.
type MessageEvent struct {
	TenantID string

	// From is the sender's WhatsApp id (a phone number). Kept as a string
	// end-to-end; never coerced to a numeric type.
	From       string
	SenderName string
	MessageID  string
	Timestamp  time.Time

	// PhoneNumberID is the business number the message was delivered to,
	// as reported inside the payload. Used to cross-check routing.
	PhoneNumberID string

	Content  MessageContent
	ReplyTo  *ReplyContext
	Referral *Referral

	// Raw is the original payload, retained for debugging only.
	Raw json.RawMessage
}

func (e *MessageEvent) Kind() EventKind { return KindMessage }
func (e *MessageEvent) Tenant() string  { return e.TenantID }
func (e *MessageEvent) EventID() string { return e.MessageID }

// Text returns the message body when the content is a text message.
func (e *MessageEvent) Text() (string, bool) {
	if t, ok := e.Content.(TextContent); ok {
		return t.Body, true
	}
	return "", false
}

// IsReply reports whether the message was sent in reply to another message.
func (e *MessageEvent) IsReply() bool { return e.ReplyTo != nil }

// DeliveryStatus is the lifecycle state reported by a status receipt.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
	StatusFailed    DeliveryStatus = "failed"
)

// StatusEvent is a delivery receipt for an outbound message.
type StatusEvent struct {
	TenantID      string
	MessageID     string
	RecipientID   string
	Timestamp     time.Time
	PhoneNumberID string
	Status        DeliveryStatus
	Errors        []ErrorDetail
}

func (e *StatusEvent) Kind() EventKind { return KindStatus }
func (e *StatusEvent) Tenant() string  { return e.TenantID }
func (e *StatusEvent) EventID() string { return e.MessageID }

// IsFailed reports whether the referenced message failed to deliver.
func (e *StatusEvent) IsFailed() bool { return e.Status == StatusFailed }

// IsTerminal reports whether no further receipts are expected.
func (e *StatusEvent) IsTerminal() bool {
	return e.Status == StatusRead || e.Status == StatusFailed
}

// Severity classifies an error notification.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ErrorEvent is a tenant-wide error notification from the provider.
type ErrorEvent struct {
	TenantID      string
	Timestamp     time.Time
	PhoneNumberID string
	Errors        []ErrorDetail
}

func (e *ErrorEvent) Kind() EventKind { return KindError }
func (e *ErrorEvent) Tenant() string  { return e.TenantID }
func (e *ErrorEvent) EventID() string { return "" }

// Severity returns the worst severity across the carried error details.
func (e *ErrorEvent) Severity() Severity {
	for _, d := range e.Errors {
		if d.Critical() {
			return SeverityCritical
		}
	}
	return SeverityWarning
}
