package assistant

import (
	"bytes"
	"encoding/json"

	"github.com/teemow/mailai/internal/gmail"
)

// Action type tags as they appear on the wire.
const (
	TypeCompose        = "compose"
	TypeNavigate       = "navigate"
	TypeSearch         = "search"
	TypeFilter         = "filter"
	TypeOpenEmail      = "open_email"
	TypeSummarize      = "summarize"
	TypeReply          = "reply"
	TypeSend           = "send"
	TypeSaveDraft      = "save_draft"
	TypeClearFilters   = "clear_filters"
	TypeGmailSearch    = "gmail_search"
	TypeLogout         = "logout"
	TypeDiscardCompose = "discard_compose"
	TypeNone           = "none"
)

// Action is a structured command for the frontend. The set of implementations
// is closed; "none" and unknown tags are represented by a nil Action.
type Action interface {
	Type() string
	isAction()
}

// actionBase carries the fields shared by every action.
type actionBase struct {
	Reasoning string `json:"reasoning,omitempty"`
}

func (actionBase) isAction() {}

// EmailFilter is the frontend's mailbox filter.
type EmailFilter struct {
	Query      string   `json:"query,omitempty"`
	Q          string   `json:"q,omitempty"`
	LabelIDs   []string `json:"labelIds,omitempty"`
	MaxResults int      `json:"maxResults,omitempty"`
	PageToken  string   `json:"pageToken,omitempty"`
	gmail.Filter
}

// ComposeAction opens the composer prefilled with a draft.
type ComposeAction struct {
	actionBase
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Cc      string `json:"cc,omitempty"`
	Bcc     string `json:"bcc,omitempty"`
}

// NavigateAction switches the mailbox view (inbox, sent, drafts, trash, archive).
type NavigateAction struct {
	actionBase
	View string `json:"view"`
}

// SearchAction searches the loaded mailbox, optionally with structured filters.
type SearchAction struct {
	actionBase
	Query   string       `json:"query"`
	Filters *EmailFilter `json:"filters,omitempty"`
}

// FilterAction applies filters to the current view without a free-text query.
type FilterAction struct {
	actionBase
	Filters EmailFilter `json:"filters"`
}

// OpenEmailAction opens one message by its Gmail ID.
type OpenEmailAction struct {
	actionBase
	EmailID string `json:"emailId"`
}

// SummarizeAction summarizes the listed messages. Summary may carry the text itself.
type SummarizeAction struct {
	actionBase
	EmailIDs []string `json:"emailIds,omitempty"`
	Summary  string   `json:"summary,omitempty"`
}

// ReplyAction starts a reply to a message.
type ReplyAction struct {
	actionBase
	EmailID string `json:"emailId"`
	Body    string `json:"body"`
}

// SendAction sends the open draft.
type SendAction struct {
	actionBase
	RequireConfirmation bool `json:"requireConfirmation,omitempty"`
}

// SaveDraftAction saves the open draft.
type SaveDraftAction struct{ actionBase }

// ClearFiltersAction removes all active filters.
type ClearFiltersAction struct{ actionBase }

// GmailSearchAction runs a raw Gmail query server-side.
type GmailSearchAction struct {
	actionBase
	Query string `json:"query"`
}

// LogoutAction signs the user out on the client.
type LogoutAction struct{ actionBase }

// DiscardComposeAction closes the composer, optionally saving a draft first.
type DiscardComposeAction struct {
	actionBase
	NeedsConfirmation bool `json:"needsConfirmation,omitempty"`
	SaveDraft         bool `json:"saveDraft,omitempty"`
}

func (ComposeAction) Type() string        { return TypeCompose }
func (NavigateAction) Type() string       { return TypeNavigate }
func (SearchAction) Type() string         { return TypeSearch }
func (FilterAction) Type() string         { return TypeFilter }
func (OpenEmailAction) Type() string      { return TypeOpenEmail }
func (SummarizeAction) Type() string      { return TypeSummarize }
func (ReplyAction) Type() string          { return TypeReply }
func (SendAction) Type() string           { return TypeSend }
func (SaveDraftAction) Type() string      { return TypeSaveDraft }
func (ClearFiltersAction) Type() string   { return TypeClearFilters }
func (GmailSearchAction) Type() string    { return TypeGmailSearch }
func (LogoutAction) Type() string         { return TypeLogout }
func (DiscardComposeAction) Type() string { return TypeDiscardCompose }

// actionType reads only the "type" tag of a raw action object.
// It returns "" for null, non-objects and non-string tags.
func actionType(raw json.RawMessage) string {
	var head struct {
		Type string `json:"type"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &head) != nil {
		return ""
	}
	return head.Type
}

// decodeAction decodes a tagged action object. Unknown tags, "none" and
// objects whose fields do not match their tag yield nil.
func decodeAction(raw json.RawMessage) Action {
	switch actionType(raw) {
	case TypeCompose:
		return decodeAs[ComposeAction](raw)
	case TypeNavigate:
		return decodeAs[NavigateAction](raw)
	case TypeSearch:
		return decodeAs[SearchAction](raw)
	case TypeFilter:
		return decodeAs[FilterAction](raw)
	case TypeOpenEmail:
		return decodeAs[OpenEmailAction](raw)
	case TypeSummarize:
		return decodeAs[SummarizeAction](raw)
	case TypeReply:
		return decodeAs[ReplyAction](raw)
	case TypeSend:
		return decodeAs[SendAction](raw)
	case TypeSaveDraft:
		return decodeAs[SaveDraftAction](raw)
	case TypeClearFilters:
		return decodeAs[ClearFiltersAction](raw)
	case TypeGmailSearch:
		return decodeAs[GmailSearchAction](raw)
	case TypeLogout:
		return decodeAs[LogoutAction](raw)
	case TypeDiscardCompose:
		return decodeAs[DiscardComposeAction](raw)
	default:
		return nil
	}
}

func decodeAs[T Action](raw json.RawMessage) Action {
	var a T
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}
	return a
}

// MarshalAction encodes a with its "type" tag. A nil action encodes as null.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	fields, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(a.Type())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if inner := bytes.TrimSpace(fields[1 : len(fields)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
