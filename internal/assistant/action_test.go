package assistant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailai/internal/gmail"
)

func TestDecodeAction(t *testing.T) {
	unread := true

	tests := []struct {
		name string
		raw  string
		want Action
	}{
		{
			name: "compose",
			raw:  `{"type":"compose","to":"bob@example.com","subject":"Hi","body":"Hello","cc":"c@example.com","reasoning":"asked"}`,
			want: ComposeAction{
				actionBase: actionBase{Reasoning: "asked"},
				To:         "bob@example.com", Subject: "Hi", Body: "Hello", Cc: "c@example.com",
			},
		},
		{
			name: "navigate",
			raw:  `{"type":"navigate","view":"sent"}`,
			want: NavigateAction{View: "sent"},
		},
		{
			name: "filter with nested filters",
			raw:  `{"type":"filter","filters":{"from":"alice@example.com","isUnread":true,"maxResults":5}}`,
			want: FilterAction{Filters: EmailFilter{
				MaxResults: 5,
				Filter:     gmail.Filter{From: "alice@example.com", IsUnread: &unread},
			}},
		},
		{
			name: "summarize",
			raw:  `{"type":"summarize","emailIds":["a","b"],"summary":"two notes"}`,
			want: SummarizeAction{EmailIDs: []string{"a", "b"}, Summary: "two notes"},
		},
		{
			name: "discard compose",
			raw:  `{"type":"discard_compose","needsConfirmation":true,"saveDraft":false}`,
			want: DiscardComposeAction{NeedsConfirmation: true},
		},
		{
			name: "field-less action",
			raw:  `{"type":"logout"}`,
			want: LogoutAction{},
		},
		{name: "none", raw: `{"type":"none"}`, want: nil},
		{name: "unknown type", raw: `{"type":"archive","emailId":"x"}`, want: nil},
		{name: "missing type", raw: `{"emailId":"x"}`, want: nil},
		{name: "null", raw: `null`, want: nil},
		{name: "not an object", raw: `"compose"`, want: nil},
		{name: "wrong field type", raw: `{"type":"open_email","emailId":42}`, want: nil},
		{name: "empty", raw: ``, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeAction(json.RawMessage(tt.raw)))
		})
	}
}

func TestMarshalAction(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{name: "nil", action: nil, want: `null`},
		{name: "no fields", action: SaveDraftAction{}, want: `{"type":"save_draft"}`},
		{
			name:   "fields and reasoning",
			action: OpenEmailAction{actionBase: actionBase{Reasoning: "matched subject"}, EmailID: "m1"},
			want:   `{"type":"open_email","reasoning":"matched subject","emailId":"m1"}`,
		},
		{
			name:   "gmail search",
			action: GmailSearchAction{Query: "from:alice invoice"},
			want:   `{"type":"gmail_search","query":"from:alice invoice"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalAction(tt.action)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestMarshalAction_RoundTripsThroughDecode(t *testing.T) {
	in := ReplyAction{EmailID: "m9", Body: "Thanks!"}

	data, err := MarshalAction(in)
	require.NoError(t, err)
	assert.Equal(t, in, decodeAction(data))
}
