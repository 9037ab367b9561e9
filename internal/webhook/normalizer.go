package webhook

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wappahq/wappa/internal/domain"
)

// Normalize converts a classified raw payload into its typed event.
// tenantID comes from the routing layer and is stamped onto the event;
// cross-checking it against the payload happens later, in tenant.Resolve.
//
// Required fields absent at the expected path yield a NormalizationError
// naming the path. Optional substructure (contacts, reply context,
// referral, captions, error lists) defaults to its zero/nil form.
func Normalize(raw []byte, kind domain.EventKind, tenantID string) (domain.Event, error) {
	value := gjson.GetBytes(raw, changeValuePath)
	if !value.Exists() {
		value = gjson.ParseBytes(raw)
	}

	switch kind {
	case domain.KindMessage:
		return normalizeMessage(raw, value, tenantID)
	case domain.KindStatus:
		return normalizeStatus(value, tenantID)
	case domain.KindError:
		return normalizeError(value, tenantID)
	default:
		return nil, &domain.ClassificationError{Reason: "unknown event kind " + string(kind)}
	}
}

func normalizeMessage(raw []byte, value gjson.Result, tenantID string) (domain.Event, error) {
	msg := value.Get("messages.0")

	from, err := requiredString(msg, "from", domain.KindMessage, "messages.0.from")
	if err != nil {
		return nil, err
	}
	id, err := requiredString(msg, "id", domain.KindMessage, "messages.0.id")
	if err != nil {
		return nil, err
	}
	ts, err := requiredTimestamp(msg, "timestamp", domain.KindMessage, "messages.0.timestamp")
	if err != nil {
		return nil, err
	}
	msgType, err := requiredString(msg, "type", domain.KindMessage, "messages.0.type")
	if err != nil {
		return nil, err
	}

	content, err := normalizeContent(msg, msgType)
	if err != nil {
		return nil, err
	}

	ev := &domain.MessageEvent{
		TenantID:      tenantID,
		From:          from,
		SenderName:    senderName(value, from),
		MessageID:     id,
		Timestamp:     ts,
		PhoneNumberID: value.Get("metadata.phone_number_id").String(),
		Content:       content,
		Raw:           json.RawMessage(raw),
	}

	if ctxID := msg.Get("context.id"); ctxID.Type == gjson.String {
		ev.ReplyTo = &domain.ReplyContext{MessageID: ctxID.String()}
	}
	if ref := msg.Get("referral"); ref.IsObject() {
		ev.Referral = &domain.Referral{
			SourceURL:  ref.Get("source_url").String(),
			SourceType: ref.Get("source_type").String(),
			SourceID:   ref.Get("source_id").String(),
			Headline:   ref.Get("headline").String(),
			Body:       ref.Get("body").String(),
		}
	}

	return ev, nil
}

// normalizeContent sub-parses the polymorphic message body. Unrecognized
// type strings normalize into UnsupportedContent rather than failing: a
// hard failure here would break every message for the tenant, not just
// the one unusual message.
func normalizeContent(msg gjson.Result, msgType string) (domain.MessageContent, error) {
	switch msgType {
	case "text":
		body, err := requiredString(msg, "text.body", domain.KindMessage, "messages.0.text.body")
		if err != nil {
			return nil, err
		}
		return domain.TextContent{Body: body}, nil

	case "image", "video", "audio", "document", "sticker":
		media := msg.Get(msgType)
		mediaID, err := requiredString(media, "id", domain.KindMessage, "messages.0."+msgType+".id")
		if err != nil {
			return nil, err
		}
		return domain.MediaContent{
			Media:    domain.MediaKind(msgType),
			MediaID:  mediaID,
			MimeType: media.Get("mime_type").String(),
			SHA256:   media.Get("sha256").String(),
			Caption:  media.Get("caption").String(),
			Filename: media.Get("filename").String(),
		}, nil

	case "interactive":
		inter := msg.Get("interactive")
		replyKind := inter.Get("type").String()
		switch replyKind {
		case "button_reply", "list_reply":
			reply := inter.Get(replyKind)
			replyID, err := requiredString(reply, "id", domain.KindMessage, "messages.0.interactive."+replyKind+".id")
			if err != nil {
				return nil, err
			}
			return domain.InteractiveContent{
				Reply:       domain.InteractiveReplyKind(replyKind),
				ID:          replyID,
				Title:       reply.Get("title").String(),
				Description: reply.Get("description").String(),
			}, nil
		default:
			return domain.UnsupportedContent{Type: "interactive." + replyKind}, nil
		}

	case "location":
		loc := msg.Get("location")
		if !loc.Get("latitude").Exists() {
			return nil, &domain.NormalizationError{FieldPath: "messages.0.location.latitude", Kind: domain.KindMessage}
		}
		if !loc.Get("longitude").Exists() {
			return nil, &domain.NormalizationError{FieldPath: "messages.0.location.longitude", Kind: domain.KindMessage}
		}
		return domain.LocationContent{
			Latitude:  loc.Get("latitude").Float(),
			Longitude: loc.Get("longitude").Float(),
			Name:      loc.Get("name").String(),
			Address:   loc.Get("address").String(),
		}, nil

	case "contacts":
		var cards []domain.ContactCard
		msg.Get("contacts").ForEach(func(_, c gjson.Result) bool {
			card := domain.ContactCard{Name: c.Get("name.formatted_name").String()}
			c.Get("phones").ForEach(func(_, p gjson.Result) bool {
				if phone := p.Get("phone").String(); phone != "" {
					card.Phones = append(card.Phones, phone)
				}
				return true
			})
			cards = append(cards, card)
			return true
		})
		return domain.ContactsContent{Contacts: cards}, nil

	default:
		return domain.UnsupportedContent{Type: msgType}, nil
	}
}

func normalizeStatus(value gjson.Result, tenantID string) (domain.Event, error) {
	st := value.Get("statuses.0")

	id, err := requiredString(st, "id", domain.KindStatus, "statuses.0.id")
	if err != nil {
		return nil, err
	}
	status, err := requiredString(st, "status", domain.KindStatus, "statuses.0.status")
	if err != nil {
		return nil, err
	}
	recipient, err := requiredString(st, "recipient_id", domain.KindStatus, "statuses.0.recipient_id")
	if err != nil {
		return nil, err
	}

	// Receipts for some failure paths omit the timestamp.
	ts := time.Now().UTC()
	if st.Get("timestamp").Exists() {
		ts, err = requiredTimestamp(st, "timestamp", domain.KindStatus, "statuses.0.timestamp")
		if err != nil {
			return nil, err
		}
	}

	return &domain.StatusEvent{
		TenantID:      tenantID,
		MessageID:     id,
		RecipientID:   recipient,
		Timestamp:     ts,
		PhoneNumberID: value.Get("metadata.phone_number_id").String(),
		Status:        domain.DeliveryStatus(status),
		Errors:        errorDetails(st.Get("errors")),
	}, nil
}

func normalizeError(value gjson.Result, tenantID string) (domain.Event, error) {
	details := errorDetails(value.Get("errors"))
	if len(details) == 0 {
		return nil, &domain.NormalizationError{FieldPath: "errors.0.code", Kind: domain.KindError}
	}

	return &domain.ErrorEvent{
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		PhoneNumberID: value.Get("metadata.phone_number_id").String(),
		Errors:        details,
	}, nil
}

func errorDetails(errs gjson.Result) []domain.ErrorDetail {
	var details []domain.ErrorDetail
	errs.ForEach(func(_, e gjson.Result) bool {
		details = append(details, domain.ErrorDetail{
			Code:    int(e.Get("code").Int()),
			Title:   e.Get("title").String(),
			Message: firstString(e, "message", "error_data.details"),
		})
		return true
	})
	return details
}

// senderName resolves the display name from the contacts block, matching
// on wa_id when possible. Absent contacts are fine; the name is optional.
func senderName(value gjson.Result, from string) string {
	name := ""
	value.Get("contacts").ForEach(func(_, c gjson.Result) bool {
		if c.Get("wa_id").String() == from || name == "" {
			name = c.Get("profile.name").String()
		}
		return c.Get("wa_id").String() != from
	})
	return name
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

func requiredString(r gjson.Result, path string, kind domain.EventKind, fieldPath string) (string, error) {
	v := r.Get(path)
	if !v.Exists() || v.String() == "" {
		return "", &domain.NormalizationError{FieldPath: fieldPath, Kind: kind}
	}
	// Identifier fields stay strings even when the wire used a bare
	// numeric literal: gjson returns the raw integer literal text, so no
	// float round-trip can lose precision.
	return v.String(), nil
}

func requiredTimestamp(r gjson.Result, path string, kind domain.EventKind, fieldPath string) (time.Time, error) {
	v := r.Get(path)
	if !v.Exists() {
		return time.Time{}, &domain.NormalizationError{FieldPath: fieldPath, Kind: kind}
	}
	secs, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		return time.Time{}, &domain.NormalizationError{FieldPath: fieldPath, Kind: kind}
	}
	return time.Unix(secs, 0).UTC(), nil
}
