package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// FallbackMessage is returned when the provider produced no usable text.
const FallbackMessage = "Sorry, I couldn't come up with a response. Please try again."

// Reply is the normalized assistant answer sent to the client.
type Reply struct {
	Action            Action
	Message           string
	NeedsConfirmation bool
}

// MarshalJSON writes action as null or a tagged object.
func (r Reply) MarshalJSON() ([]byte, error) {
	action, err := MarshalAction(r.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Action            json.RawMessage `json:"action"`
		Message           string          `json:"message"`
		NeedsConfirmation bool            `json:"needsConfirmation,omitempty"`
	}{action, r.Message, r.NeedsConfirmation})
}

var fencePattern = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")

type envelope struct {
	Action            json.RawMessage `json:"action"`
	Message           string          `json:"message"`
	NeedsConfirmation bool            `json:"needsConfirmation"`
}

// Normalize turns raw provider output into a Reply. It never fails: output
// that is not a JSON envelope becomes the verbatim text with no action.
func Normalize(raw string) Reply {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Reply{Message: FallbackMessage}
	}

	env, ok := parseEnvelope(text)
	if !ok {
		return Reply{Message: raw}
	}

	reply := Reply{
		Action:            decodeAction(env.Action),
		Message:           strings.TrimSpace(env.Message),
		NeedsConfirmation: env.NeedsConfirmation,
	}
	if reply.Message == "" {
		reply.Message = templateMessage(env.Action, reply.Action, raw)
	}
	return reply
}

// parseEnvelope accepts a bare JSON object first, so fences quoted inside
// the message never hide a valid envelope, then a fenced block.
func parseEnvelope(text string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err == nil {
		return env, true
	}
	m := fencePattern.FindStringSubmatch(text)
	if m == nil {
		return envelope{}, false
	}
	env = envelope{}
	if err := json.Unmarshal([]byte(m[1]), &env); err != nil {
		return envelope{}, false
	}
	return env, true
}

// templateMessage synthesizes a message for an envelope that carried none.
// The raw type tag is used so unknown types still get a description.
func templateMessage(raw json.RawMessage, action Action, text string) string {
	tag := actionType(raw)
	if tag == "" || tag == TypeNone {
		return text
	}

	switch a := action.(type) {
	case SummarizeAction:
		if a.Summary != "" {
			return a.Summary
		}
		return "Here is a summary of the selected emails."
	case ComposeAction:
		return "Composing an email to " + a.To + "..."
	case OpenEmailAction:
		return "Opening email..."
	case NavigateAction:
		return "Navigating to " + a.View + "."
	case SendAction:
		return "Sending email..."
	}
	return "Performing action: " + tag
}
