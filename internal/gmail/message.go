package gmail

import (
	"slices"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Well-known labels and header fallbacks.
const (
	LabelInbox  = "INBOX"
	LabelUnread = "UNREAD"

	DefaultSubject = "(no subject)"
	DefaultFrom    = "(unknown)"
)

// EmailRecord is the flat message representation returned to the frontend.
type EmailRecord struct {
	ID           string   `json:"id"`
	ThreadID     string   `json:"threadId"`
	LabelIDs     []string `json:"labelIds"`
	Snippet      string   `json:"snippet"`
	Subject      string   `json:"subject"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Date         string   `json:"date"`
	InternalDate int64    `json:"internalDate"`
	IsRead       bool     `json:"isRead"`
	BodyHTML     string   `json:"bodyHtml"`
	BodyText     string   `json:"bodyText"`
}

// NewEmailRecord flattens a message fetched in full format.
func NewEmailRecord(m *gmail.Message) EmailRecord {
	labels := m.LabelIds
	if labels == nil {
		labels = []string{}
	}

	rec := EmailRecord{
		ID:           m.Id,
		ThreadID:     m.ThreadId,
		LabelIDs:     labels,
		Snippet:      m.Snippet,
		Subject:      headerOr(m, "Subject", DefaultSubject),
		From:         headerOr(m, "From", DefaultFrom),
		To:           HeaderValue(m, "To"),
		Date:         HeaderValue(m, "Date"),
		InternalDate: m.InternalDate,
		IsRead:       !slices.Contains(labels, LabelUnread),
	}
	rec.BodyHTML, rec.BodyText = ExtractBody(m.Payload)
	return rec
}

// HeaderValue returns the first header named header, compared case-insensitively.
func HeaderValue(m *gmail.Message, header string) string {
	v, _ := lookupHeader(m, header)
	return v
}

// headerOr is HeaderValue with a fallback for absent headers.
func headerOr(m *gmail.Message, header, fallback string) string {
	if v, ok := lookupHeader(m, header); ok {
		return v
	}
	return fallback
}

func lookupHeader(m *gmail.Message, header string) (string, bool) {
	if m == nil || m.Payload == nil {
		return "", false
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value, true
		}
	}
	return "", false
}
