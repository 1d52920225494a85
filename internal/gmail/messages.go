package gmail

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mailai/internal/instrumentation"
)

// batchModifyLimit is the maximum number of IDs per batchModify request.
const batchModifyLimit = 1000

// ComposeRequest is a new outgoing message. To may be empty for drafts.
type ComposeRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ReplyRequest is a reply within an existing thread.
type ReplyRequest struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	MessageID string `json:"messageId"`
	ThreadID  string `json:"threadId"`
}

// ListResult is one page of messages.
type ListResult struct {
	Emails        []EmailRecord
	NextPageToken string
}

// List returns a page of messages matching opts, newest first as Gmail orders them.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}

	req := c.users.Messages.List(me).MaxResults(clampMaxResults(opts.MaxResults, DefaultListMaxResults))
	if labels := opts.labels(); len(labels) > 0 {
		req = req.LabelIds(labels...)
	}
	if q := opts.Filter.BuildQuery(opts.Query); q != "" {
		req = req.Q(q)
	}
	if opts.PageToken != "" {
		req = req.PageToken(opts.PageToken)
	}

	var resp *gmail.ListMessagesResponse
	err := c.call(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		resp, err = req.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails, err := c.fetchAll(ctx, instrumentation.OperationList, resp.Messages)
	if err != nil {
		return nil, err
	}
	return &ListResult{Emails: emails, NextPageToken: resp.NextPageToken}, nil
}

// Search runs a free-text Gmail query. maxResults <= 0 means DefaultSearchMaxResults.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]EmailRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}

	var resp *gmail.ListMessagesResponse
	err := c.call(ctx, instrumentation.OperationSearch, func(ctx context.Context) error {
		var err error
		resp, err = c.users.Messages.List(me).
			Q(query).
			MaxResults(clampMaxResults(maxResults, DefaultSearchMaxResults)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}

	return c.fetchAll(ctx, instrumentation.OperationSearch, resp.Messages)
}

// GetThread returns every message of a thread, oldest first by internalDate.
func (c *Client) GetThread(ctx context.Context, threadID string) ([]EmailRecord, error) {
	if threadID == "" {
		return nil, errors.New("thread ID is required")
	}

	var thread *gmail.Thread
	err := c.call(ctx, instrumentation.OperationThread, func(ctx context.Context) error {
		var err error
		thread, err = c.users.Threads.Get(me, threadID).Format("full").Context(ctx).Do()
		return err
	}, instrumentation.ResourceID(threadID))
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	records := make([]EmailRecord, 0, len(thread.Messages))
	for _, m := range thread.Messages {
		records = append(records, NewEmailRecord(m))
	}
	slices.SortStableFunc(records, func(a, b EmailRecord) int {
		return cmp.Compare(a.InternalDate, b.InternalDate)
	})
	return records, nil
}

// Send sends a new plain-text message and returns Gmail's sent message.
func (c *Client) Send(ctx context.Context, req ComposeRequest) (sent *gmail.Message, err error) {
	op := c.audit(ctx, "send").WithRecipients(req.To)
	defer func() { c.finishAudit(ctx, op, err) }()

	if strings.TrimSpace(req.To) == "" {
		return nil, errors.New("recipient is required")
	}

	raw, err := c.gw.raw(outgoing{to: req.To, subject: req.Subject, body: req.Body})
	if err != nil {
		return nil, err
	}

	sent, err = c.send(ctx, &gmail.Message{Raw: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	op.WithMessages(sent.ThreadId, sent.Id)
	return sent, nil
}

// Reply sends a reply threaded under the message identified by req.MessageID.
// The original's Message-ID header feeds In-Reply-To and References.
func (c *Client) Reply(ctx context.Context, req ReplyRequest) (sent *gmail.Message, err error) {
	op := c.audit(ctx, "reply").WithRecipients(req.To).WithMessages(req.ThreadID, req.MessageID)
	defer func() { c.finishAudit(ctx, op, err) }()

	switch {
	case strings.TrimSpace(req.To) == "":
		return nil, errors.New("recipient is required")
	case req.MessageID == "":
		return nil, errors.New("messageId is required")
	case req.ThreadID == "":
		return nil, errors.New("threadId is required")
	}

	var original *gmail.Message
	err = c.call(ctx, instrumentation.OperationMetadata, func(ctx context.Context) error {
		var err error
		original, err = c.users.Messages.Get(me, req.MessageID).
			Format("metadata").
			MetadataHeaders("Message-ID", "References").
			Context(ctx).
			Do()
		return err
	}, instrumentation.ResourceID(req.MessageID))
	if err != nil {
		return nil, fmt.Errorf("failed to get original message: %w", err)
	}

	msg := outgoing{to: req.To, subject: replySubject(req.Subject), body: req.Body}
	if messageID := HeaderValue(original, "Message-ID"); messageID != "" {
		msg.inReplyTo = messageID
		msg.references = threadReferences(HeaderValue(original, "References"), messageID)
	}

	raw, err := c.gw.raw(msg)
	if err != nil {
		return nil, err
	}

	sent, err = c.send(ctx, &gmail.Message{Raw: raw, ThreadId: req.ThreadID})
	if err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}
	return sent, nil
}

func (c *Client) send(ctx context.Context, msg *gmail.Message) (*gmail.Message, error) {
	var sent *gmail.Message
	err := c.call(ctx, instrumentation.OperationSend, func(ctx context.Context) error {
		var err error
		sent, err = c.users.Messages.Send(me, msg).Context(ctx).Do()
		return err
	})
	return sent, err
}

// MarkRead removes the UNREAD label from the given messages.
// An empty list is a successful no-op.
func (c *Client) MarkRead(ctx context.Context, messageIDs []string) (err error) {
	if len(messageIDs) == 0 {
		return nil
	}

	op := c.audit(ctx, "mark_read").WithMessages("", messageIDs...)
	defer func() { c.finishAudit(ctx, op, err) }()

	for chunk := range slices.Chunk(messageIDs, batchModifyLimit) {
		err = c.call(ctx, instrumentation.OperationModify, func(ctx context.Context) error {
			return c.users.Messages.BatchModify(me, &gmail.BatchModifyMessagesRequest{
				Ids:            chunk,
				RemoveLabelIds: []string{LabelUnread},
			}).Context(ctx).Do()
		}, instrumentation.ItemCount(len(chunk)))
		if err != nil {
			return fmt.Errorf("failed to mark messages as read: %w", err)
		}
	}
	return nil
}

// CreateDraft saves a plain-text draft. All fields are optional.
func (c *Client) CreateDraft(ctx context.Context, req ComposeRequest) (draft *gmail.Draft, err error) {
	op := c.audit(ctx, "create_draft").WithRecipients(req.To)
	defer func() { c.finishAudit(ctx, op, err) }()

	raw, err := c.gw.raw(outgoing{to: req.To, subject: req.Subject, body: req.Body})
	if err != nil {
		return nil, err
	}

	err = c.call(ctx, instrumentation.OperationDraft, func(ctx context.Context) error {
		var err error
		draft, err = c.users.Drafts.Create(me, &gmail.Draft{Message: &gmail.Message{Raw: raw}}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return draft, nil
}

// Trash moves a message to the trash.
func (c *Client) Trash(ctx context.Context, messageID string) (err error) {
	op := c.audit(ctx, "trash").WithMessages("", messageID)
	defer func() { c.finishAudit(ctx, op, err) }()

	if messageID == "" {
		return errors.New("messageId is required")
	}

	err = c.call(ctx, instrumentation.OperationTrash, func(ctx context.Context) error {
		_, err := c.users.Messages.Trash(me, messageID).Context(ctx).Do()
		return err
	}, instrumentation.ResourceID(messageID))
	if err != nil {
		return fmt.Errorf("failed to trash message: %w", err)
	}
	return nil
}
