package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// Message is a Graph mail message, reduced to the fields the agent
// uses.
type Message struct {
	ID               string       `json:"id"`
	Subject          string       `json:"subject"`
	Body             Body         `json:"body"`
	From             *Recipient   `json:"from,omitempty"`
	ReceivedDateTime string       `json:"receivedDateTime"`
	HasAttachments   bool         `json:"hasAttachments"`
	Attachments      []Attachment `json:"attachments,omitempty"`
}

// Body is the message body with its content type.
type Body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// Recipient wraps a Graph email address.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// EmailAddress is a name and address pair.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Attachment is a mail attachment descriptor. ContentBytes is
// base64-encoded when present.
type Attachment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int    `json:"size"`
	ContentBytes string `json:"contentBytes,omitempty"`
}

type attachmentList struct {
	Value []Attachment `json:"value"`
}

// Fields is the extract of a message handed to the model.
type Fields struct {
	Subject          string `json:"subject"`
	Sender           string `json:"sender"`
	ReceivedDateTime string `json:"received_datetime"`
	HasAttachments   bool   `json:"has_attachments"`
	BodyType         string `json:"body_type"`
	BodyContent      string `json:"body_content"`
}

// EmailOperations reads mail through a Graph client.
type EmailOperations struct {
	client *Client
}

// NewEmailOperations wraps the client.
func NewEmailOperations(client *Client) *EmailOperations {
	return &EmailOperations{client: client}
}

// GetFullEmail fetches a message with its attachments. Attachments are
// requested separately when the expand did not include them.
func (e *EmailOperations) GetFullEmail(ctx context.Context, messageID string) (*Message, error) {
	base := fmt.Sprintf("/users/%s/messages/%s",
		url.PathEscape(e.client.TargetUser()), url.PathEscape(messageID))

	raw, err := e.client.Get(ctx, base+"?$expand=attachments")
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get message %s", messageID)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, errors.WithMessage(err, "failed to decode message")
	}

	if msg.HasAttachments && len(msg.Attachments) == 0 {
		raw, err := e.client.Get(ctx, base+"/attachments")
		if err != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "attachments_fetch",
				"message_id", messageID,
				"err", err.Error(),
			)
		} else {
			var list attachmentList
			if err := json.Unmarshal(raw, &list); err == nil {
				msg.Attachments = list.Value
			}
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"message_id", messageID,
		"attachments", len(msg.Attachments),
	)
	return &msg, nil
}

// ExtractFields reduces a message to the fields the agent reasons on.
func ExtractFields(msg *Message) Fields {
	sender := "unknown"
	if msg.From != nil && msg.From.EmailAddress.Address != "" {
		sender = msg.From.EmailAddress.Address
	}
	bodyType := msg.Body.ContentType
	if bodyType == "" {
		bodyType = "text"
	}
	return Fields{
		Subject:          msg.Subject,
		Sender:           sender,
		ReceivedDateTime: msg.ReceivedDateTime,
		HasAttachments:   msg.HasAttachments,
		BodyType:         bodyType,
		BodyContent:      msg.Body.Content,
	}
}
