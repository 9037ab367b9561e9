package domain

// ContentKind identifies the concrete variant of a message's content.
type ContentKind string

const (
	ContentText        ContentKind = "text"
	ContentMedia       ContentKind = "media"
	ContentInteractive ContentKind = "interactive"
	ContentLocation    ContentKind = "location"
	ContentContacts    ContentKind = "contacts"
	ContentUnsupported ContentKind = "unsupported"
)

// MessageContent is the closed sum of inbound message content variants.
// Which fields are valid for which message type is expressed by the
// concrete variant, not by a bag of optional attributes.
type MessageContent interface {
	ContentKind() ContentKind
}

// TextContent is a plain text message.
type TextContent struct {
	Body string
}

func (TextContent) ContentKind() ContentKind { return ContentText }

// MediaKind distinguishes the media message families.
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaSticker  MediaKind = "sticker"
)

// MediaContent is an image, video, audio, document, or sticker message.
// The media bytes are not inlined; MediaID references a downloadable asset.
type MediaContent struct {
	Media    MediaKind
	MediaID  string
	MimeType string
	SHA256   string
	Caption  string
	Filename string
}

func (MediaContent) ContentKind() ContentKind { return ContentMedia }

// InteractiveReplyKind distinguishes button replies from list replies.
type InteractiveReplyKind string

const (
	ReplyButton InteractiveReplyKind = "button_reply"
	ReplyList   InteractiveReplyKind = "list_reply"
)

// InteractiveContent is the user's selection from a button or list prompt.
type InteractiveContent struct {
	Reply       InteractiveReplyKind
	ID          string
	Title       string
	Description string
}

func (InteractiveContent) ContentKind() ContentKind { return ContentInteractive }

// LocationContent is a shared location pin.
type LocationContent struct {
	Latitude  float64
	Longitude float64
	Name      string
	Address   string
}

func (LocationContent) ContentKind() ContentKind { return ContentLocation }

// ContactCard is a single shared contact.
type ContactCard struct {
	Name   string
	Phones []string
}

// ContactsContent is one or more shared contact cards.
type ContactsContent struct {
	Contacts []ContactCard
}

func (ContactsContent) ContentKind() ContentKind { return ContentContacts }

// UnsupportedContent represents a message type this core does not model.
// Providers add new types over time; an unrecognized type normalizes into
// this variant instead of failing the whole delivery.
type UnsupportedContent struct {
	// Type is the raw provider type string, e.g. "order" or a future type.
	Type string
}

func (UnsupportedContent) ContentKind() ContentKind { return ContentUnsupported }
