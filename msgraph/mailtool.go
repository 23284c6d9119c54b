package msgraph

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mailagent/pkg/schema"
	"github.com/effective-security/mailagent/tools"
)

// ToolName is the name of the local email reading tool.
const ToolName = "read_email"

// ReadEmailRequest is the tool input.
type ReadEmailRequest struct {
	MessageID string `json:"message_id" yaml:"message_id" jsonschema:"title=message_id,description=The Microsoft Graph ID of the email message to read."`
}

// ReadEmailResult is the tool output.
type ReadEmailResult struct {
	Subject          string         `json:"subject"`
	Sender           string         `json:"sender"`
	ReceivedDateTime string         `json:"received_datetime"`
	Body             string         `json:"body"`
	HasAttachments   bool           `json:"has_attachments"`
	Attachments      []Attachment   `json:"attachments,omitempty"`
	Stats            NormalizeStats `json:"normalize_stats"`
}

// MailTool reads and normalizes an email from the target mailbox.
// It implements tools.ITool and runs in process, without a round trip
// to a remote tool server.
type MailTool struct {
	name        string
	description string
	funcParams  any

	ops *EmailOperations
}

var _ tools.Tool[ReadEmailRequest, ReadEmailResult] = (*MailTool)(nil)

// NewMailTool creates the tool over a Graph client.
func NewMailTool(client *Client) (*MailTool, error) {
	sc, err := schema.New(reflect.TypeOf(ReadEmailRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &MailTool{
		name:        ToolName,
		description: "Reads an email from the mailbox by message ID and returns its normalized content: subject, sender, cleaned body and attachment list.",
		funcParams:  sc.Parameters,
		ops:         NewEmailOperations(client),
	}, nil
}

func (t *MailTool) Name() string {
	return t.name
}

func (t *MailTool) Description() string {
	return t.description
}

func (t *MailTool) Parameters() any {
	return t.funcParams
}

func (t *MailTool) Call(ctx context.Context, input string) (string, error) {
	var req ReadEmailRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		return "", errors.WithMessage(err, "failed to unmarshal input")
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	js, err := json.Marshal(res)
	if err != nil {
		return "", errors.WithMessage(err, "failed to marshal result")
	}
	return string(js), nil
}

func (t *MailTool) Run(ctx context.Context, req *ReadEmailRequest) (*ReadEmailResult, error) {
	if req.MessageID == "" {
		return nil, errors.New("invalid request: empty message_id")
	}

	msg, err := t.ops.GetFullEmail(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	fields := ExtractFields(msg)
	body, stats := NormalizeBody(fields.BodyContent, fields.BodyType)

	// Attachment content stays out of the result, the model only
	// needs the descriptors.
	attachments := make([]Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		a.ContentBytes = ""
		attachments = append(attachments, a)
	}

	return &ReadEmailResult{
		Subject:          fields.Subject,
		Sender:           fields.Sender,
		ReceivedDateTime: fields.ReceivedDateTime,
		Body:             body,
		HasAttachments:   fields.HasAttachments,
		Attachments:      attachments,
		Stats:            stats,
	}, nil
}
