// Package messenger sends outbound messages through the Cloud API on
// behalf of one tenant.
package messenger

import (
	"context"
	"fmt"

	"github.com/wappahq/wappa/internal/domain"
)

// SendResult reports a successful send.
type SendResult struct {
	// MessageID is the provider-assigned id of the sent message.
	MessageID string
}

// Button is one reply button of an interactive message. The provider
// caps interactive messages at three buttons.
type Button struct {
	ID    string
	Title string
}

// Messenger is the outbound capability handed to handlers. All ids are
// strings. Implementations never retry; retry policy belongs to the
// handler or the caller.
type Messenger interface {
	SendText(ctx context.Context, to, body string) (*SendResult, error)
	SendMediaID(ctx context.Context, to string, kind domain.MediaKind, mediaID, caption string) (*SendResult, error)
	SendMediaLink(ctx context.Context, to string, kind domain.MediaKind, link, caption string) (*SendResult, error)
	SendButtons(ctx context.Context, to, body string, buttons []Button) (*SendResult, error)
	SendLocation(ctx context.Context, to string, latitude, longitude float64, name, address string) (*SendResult, error)
	SendReaction(ctx context.Context, to, messageID, emoji string) (*SendResult, error)
	MarkRead(ctx context.Context, messageID string) error
}

// APIError is a structured failure returned by the Cloud API.
type APIError struct {
	Status  int
	Code    int
	Subcode int
	Message string
	TraceID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloud api error %d (http %d): %s", e.Code, e.Status, e.Message)
}

// Retryable reports whether the failure is a known transient condition.
func (e *APIError) Retryable() bool {
	return domain.ErrorDetail{Code: e.Code}.Retryable()
}
