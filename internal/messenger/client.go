package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wappahq/wappa/internal/domain"
)

const defaultTimeout = 20 * time.Second

// Client is a Graph API messaging client bound to one tenant's business
// number and access token. It is safe for concurrent use; the underlying
// http.Client pools connections.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the HTTP client, e.g. a recorder in tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a tenant-scoped client. baseURL has no trailing
// slash, e.g. "https://graph.facebook.com".
func NewClient(baseURL, apiVersion, phoneNumberID, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		baseURL:       baseURL,
		apiVersion:    apiVersion,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Messenger = (*Client)(nil)

// outbound is the Cloud API send envelope. Fields are pointers so only
// the section matching Type is serialized.
type outbound struct {
	MessagingProduct string          `json:"messaging_product"`
	RecipientType    string          `json:"recipient_type,omitempty"`
	To               string          `json:"to,omitempty"`
	Type             string          `json:"type,omitempty"`
	Text             *textPayload    `json:"text,omitempty"`
	Image            *mediaPayload   `json:"image,omitempty"`
	Video            *mediaPayload   `json:"video,omitempty"`
	Audio            *mediaPayload   `json:"audio,omitempty"`
	Document         *mediaPayload   `json:"document,omitempty"`
	Sticker          *mediaPayload   `json:"sticker,omitempty"`
	Interactive      *interactive    `json:"interactive,omitempty"`
	Location         *locationObject `json:"location,omitempty"`
	Reaction         *reaction       `json:"reaction,omitempty"`
	Status           string          `json:"status,omitempty"`
	MessageID        string          `json:"message_id,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type mediaPayload struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   interactiveText   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveText struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons []interactiveButton `json:"buttons"`
}

type interactiveButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type locationObject struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type reaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Subcode int    `json:"error_subcode"`
		TraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

func (c *Client) SendText(ctx context.Context, to, body string) (*SendResult, error) {
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

func (c *Client) SendMediaID(ctx context.Context, to string, kind domain.MediaKind, mediaID, caption string) (*SendResult, error) {
	out := outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             string(kind),
	}
	if err := setMedia(&out, kind, mediaPayload{ID: mediaID, Caption: caption}); err != nil {
		return nil, err
	}
	return c.send(ctx, out)
}

func (c *Client) SendMediaLink(ctx context.Context, to string, kind domain.MediaKind, link, caption string) (*SendResult, error) {
	out := outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             string(kind),
	}
	if err := setMedia(&out, kind, mediaPayload{Link: link, Caption: caption}); err != nil {
		return nil, err
	}
	return c.send(ctx, out)
}

func setMedia(out *outbound, kind domain.MediaKind, p mediaPayload) error {
	switch kind {
	case domain.MediaImage:
		out.Image = &p
	case domain.MediaVideo:
		out.Video = &p
	case domain.MediaAudio:
		p.Caption = ""
		out.Audio = &p
	case domain.MediaDocument:
		out.Document = &p
	case domain.MediaSticker:
		p.Caption = ""
		out.Sticker = &p
	default:
		return fmt.Errorf("messenger: unknown media kind %q", kind)
	}
	return nil
}

func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []Button) (*SendResult, error) {
	if len(buttons) == 0 || len(buttons) > 3 {
		return nil, fmt.Errorf("messenger: interactive messages need 1-3 buttons, got %d", len(buttons))
	}

	action := interactiveAction{Buttons: make([]interactiveButton, len(buttons))}
	for i, b := range buttons {
		action.Buttons[i] = interactiveButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: b.Title},
		}
	}

	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &interactive{
			Type:   "button",
			Body:   interactiveText{Text: body},
			Action: action,
		},
	})
}

func (c *Client) SendLocation(ctx context.Context, to string, latitude, longitude float64, name, address string) (*SendResult, error) {
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "location",
		Location: &locationObject{
			Latitude:  latitude,
			Longitude: longitude,
			Name:      name,
			Address:   address,
		},
	})
}

func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) (*SendResult, error) {
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "reaction",
		Reaction:         &reaction{MessageID: messageID, Emoji: emoji},
	})
}

func (c *Client) MarkRead(ctx context.Context, messageID string) error {
	_, err := c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		Status:           "read",
		MessageID:        messageID,
	})
	return err
}

func (c *Client) send(ctx context.Context, out outbound) (*SendResult, error) {
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("messenger: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messenger: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error.Code == 0 {
			return nil, &APIError{Status: resp.StatusCode, Message: string(respBody)}
		}
		return nil, &APIError{
			Status:  resp.StatusCode,
			Code:    apiErr.Error.Code,
			Subcode: apiErr.Error.Subcode,
			Message: apiErr.Error.Message,
			TraceID: apiErr.Error.TraceID,
		}
	}

	var sr sendResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("messenger: decode response: %w", err)
	}

	result := &SendResult{}
	if len(sr.Messages) > 0 {
		result.MessageID = sr.Messages[0].ID
	}
	return result, nil
}
