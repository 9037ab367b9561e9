package webhook

import (
	"errors"
	"testing"
	"time"

	"github.com/wappahq/wappa/internal/domain"
)

func normalizeMessageEvent(t *testing.T, raw string) *domain.MessageEvent {
	t.Helper()
	ev, err := Normalize([]byte(raw), domain.KindMessage, "T1")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	msg, ok := ev.(*domain.MessageEvent)
	if !ok {
		t.Fatalf("Normalize() = %T, want *MessageEvent", ev)
	}
	return msg
}

func TestNormalize_TextMessage(t *testing.T) {
	raw := `{"messages":[{"from":"15551234567","id":"wamid.ABC","timestamp":"1700000000","type":"text","text":{"body":"hi"}}]}`
	msg := normalizeMessageEvent(t, raw)

	// The sender id is a numeric-looking string and must survive untouched.
	if msg.From != "15551234567" {
		t.Errorf("From = %q, want %q", msg.From, "15551234567")
	}
	if msg.MessageID != "wamid.ABC" {
		t.Errorf("MessageID = %q, want %q", msg.MessageID, "wamid.ABC")
	}
	text, ok := msg.Text()
	if !ok || text != "hi" {
		t.Errorf("Text() = %q, %v, want %q, true", text, ok, "hi")
	}
	if got := msg.Timestamp; !got.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Timestamp = %v, want %v", got, time.Unix(1700000000, 0))
	}
	if msg.TenantID != "T1" {
		t.Errorf("TenantID = %q, want T1", msg.TenantID)
	}
	if msg.ReplyTo != nil || msg.Referral != nil {
		t.Errorf("optional context should be absent, got ReplyTo=%v Referral=%v", msg.ReplyTo, msg.Referral)
	}
}

// An unrecognized type string must normalize into the unsupported
// variant, not fail the delivery.
func TestNormalize_UnknownMessageType(t *testing.T) {
	raw := `{"messages":[{"from":"15551234567","id":"wamid.X","timestamp":"1700000000","type":"future_unknown_type"}]}`
	msg := normalizeMessageEvent(t, raw)

	content, ok := msg.Content.(domain.UnsupportedContent)
	if !ok {
		t.Fatalf("Content = %T, want UnsupportedContent", msg.Content)
	}
	if content.Type != "future_unknown_type" {
		t.Errorf("Type = %q, want %q", content.Type, "future_unknown_type")
	}
}

func TestNormalize_MessageVariants(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, msg *domain.MessageEvent)
	}{
		{
			name: "image with caption",
			raw:  `{"messages":[{"from":"1555","id":"wamid.I","timestamp":"1700000000","type":"image","image":{"id":"media-1","mime_type":"image/jpeg","sha256":"abc","caption":"look"}}]}`,
			check: func(t *testing.T, msg *domain.MessageEvent) {
				m, ok := msg.Content.(domain.MediaContent)
				if !ok {
					t.Fatalf("Content = %T, want MediaContent", msg.Content)
				}
				if m.Media != domain.MediaImage || m.MediaID != "media-1" || m.Caption != "look" {
					t.Errorf("unexpected media content: %+v", m)
				}
			},
		},
		{
			name: "button reply",
			raw:  `{"messages":[{"from":"1555","id":"wamid.B","timestamp":"1700000000","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"opt-1","title":"Yes"}}}]}`,
			check: func(t *testing.T, msg *domain.MessageEvent) {
				i, ok := msg.Content.(domain.InteractiveContent)
				if !ok {
					t.Fatalf("Content = %T, want InteractiveContent", msg.Content)
				}
				if i.Reply != domain.ReplyButton || i.ID != "opt-1" || i.Title != "Yes" {
					t.Errorf("unexpected interactive content: %+v", i)
				}
			},
		},
		{
			name: "location",
			raw:  `{"messages":[{"from":"1555","id":"wamid.L","timestamp":"1700000000","type":"location","location":{"latitude":52.52,"longitude":13.405,"name":"Berlin"}}]}`,
			check: func(t *testing.T, msg *domain.MessageEvent) {
				l, ok := msg.Content.(domain.LocationContent)
				if !ok {
					t.Fatalf("Content = %T, want LocationContent", msg.Content)
				}
				if l.Latitude != 52.52 || l.Longitude != 13.405 || l.Name != "Berlin" {
					t.Errorf("unexpected location content: %+v", l)
				}
			},
		},
		{
			name: "reply context and sender name",
			raw: `{"contacts":[{"wa_id":"1555","profile":{"name":"Ada"}}],
				"messages":[{"from":"1555","id":"wamid.R","timestamp":"1700000000","type":"text","text":{"body":"re"},"context":{"id":"wamid.orig"}}]}`,
			check: func(t *testing.T, msg *domain.MessageEvent) {
				if !msg.IsReply() || msg.ReplyTo.MessageID != "wamid.orig" {
					t.Errorf("ReplyTo = %+v, want wamid.orig", msg.ReplyTo)
				}
				if msg.SenderName != "Ada" {
					t.Errorf("SenderName = %q, want Ada", msg.SenderName)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, normalizeMessageEvent(t, tt.raw))
		})
	}
}

func TestNormalize_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      domain.EventKind
		fieldPath string
	}{
		{
			name:      "message without id",
			raw:       `{"messages":[{"from":"1555","timestamp":"1700000000","type":"text","text":{"body":"x"}}]}`,
			kind:      domain.KindMessage,
			fieldPath: "messages.0.id",
		},
		{
			name:      "text message without body",
			raw:       `{"messages":[{"from":"1555","id":"wamid.1","timestamp":"1700000000","type":"text"}]}`,
			kind:      domain.KindMessage,
			fieldPath: "messages.0.text.body",
		},
		{
			name:      "status without recipient",
			raw:       `{"statuses":[{"id":"wamid.1","status":"sent","timestamp":"1700000000"}]}`,
			kind:      domain.KindStatus,
			fieldPath: "statuses.0.recipient_id",
		},
		{
			name:      "malformed timestamp",
			raw:       `{"messages":[{"from":"1555","id":"wamid.1","timestamp":"not-a-number","type":"text","text":{"body":"x"}}]}`,
			kind:      domain.KindMessage,
			fieldPath: "messages.0.timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize([]byte(tt.raw), tt.kind, "T1")
			var nerr *domain.NormalizationError
			if !errors.As(err, &nerr) {
				t.Fatalf("Normalize() error = %v, want NormalizationError", err)
			}
			if nerr.FieldPath != tt.fieldPath {
				t.Errorf("FieldPath = %q, want %q", nerr.FieldPath, tt.fieldPath)
			}
		})
	}
}

func TestNormalize_FailedStatus(t *testing.T) {
	raw := `{"statuses":[{"id":"wamid.1","status":"failed","recipient_id":"1555","errors":[{"code":131051,"title":"Unsupported message type"}]}]}`

	ev, err := Normalize([]byte(raw), domain.KindStatus, "T1")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	st, ok := ev.(*domain.StatusEvent)
	if !ok {
		t.Fatalf("Normalize() = %T, want *StatusEvent", ev)
	}

	if !st.IsFailed() {
		t.Error("IsFailed() = false, want true")
	}
	if st.RecipientID != "1555" {
		t.Errorf("RecipientID = %q, want 1555", st.RecipientID)
	}
	if len(st.Errors) != 1 || st.Errors[0].Code != 131051 {
		t.Fatalf("Errors = %+v, want one detail with code 131051", st.Errors)
	}
}

func TestNormalize_ErrorEvent(t *testing.T) {
	raw := `{"errors":[{"code":131016,"title":"Service overloaded","message":"try later"},{"code":131056,"title":"Pair rate limit"}]}`

	ev, err := Normalize([]byte(raw), domain.KindError, "T1")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	ee, ok := ev.(*domain.ErrorEvent)
	if !ok {
		t.Fatalf("Normalize() = %T, want *ErrorEvent", ev)
	}

	if len(ee.Errors) != 2 {
		t.Fatalf("Errors = %d details, want 2", len(ee.Errors))
	}
	if ee.Severity() != domain.SeverityCritical {
		t.Errorf("Severity() = %v, want critical", ee.Severity())
	}
	if !ee.Errors[1].Retryable() {
		t.Error("pair rate limit should be retryable")
	}
}
