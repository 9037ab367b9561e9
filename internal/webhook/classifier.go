// Package webhook classifies and normalizes raw Cloud API webhook
// deliveries into the typed events defined in the domain package.
package webhook

import (
	"github.com/tidwall/gjson"

	"github.com/wappahq/wappa/internal/domain"
)

// excerptLen bounds how much of a rejected payload is kept for debugging.
const excerptLen = 160

// changeValuePath locates the notification body inside the standard
// entry/changes envelope. Bare payloads (no envelope) are also accepted,
// which keeps hand-built test fixtures small.
const changeValuePath = "entry.0.changes.0.value"

// Classify inspects a raw payload and reports which event shape it
// carries. It is a pure function: no side effects, same result for the
// same input. It fails only when every recognized discriminator is
// absent or when message and status discriminators conflict.
func Classify(raw []byte) (domain.EventKind, error) {
	if !gjson.ValidBytes(raw) {
		return "", &domain.ClassificationError{
			Reason:  "body is not valid JSON",
			Excerpt: excerpt(raw),
		}
	}

	value := gjson.GetBytes(raw, changeValuePath)
	if !value.Exists() {
		value = gjson.ParseBytes(raw)
	}

	hasMessages := value.Get("messages").IsArray()
	hasStatuses := value.Get("statuses").IsArray()
	hasErrors := value.Get("errors").IsArray()

	switch {
	case hasMessages && hasStatuses:
		return "", &domain.ClassificationError{
			Reason:  "payload carries both messages and statuses",
			Excerpt: excerpt(raw),
		}
	case hasMessages:
		return domain.KindMessage, nil
	case hasStatuses:
		return domain.KindStatus, nil
	case hasErrors:
		return domain.KindError, nil
	default:
		return "", &domain.ClassificationError{
			Reason:  "no messages, statuses, or errors discriminator present",
			Excerpt: excerpt(raw),
		}
	}
}

func excerpt(raw []byte) string {
	if len(raw) > excerptLen {
		raw = raw[:excerptLen]
	}
	return string(raw)
}
