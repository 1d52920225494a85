package assistant

import (
	"fmt"
	"strings"
)

const (
	// MaxPromptEmails bounds how many mailbox entries are rendered into the prompt.
	MaxPromptEmails = 20

	// MaxHistoryTurns bounds the replayed conversation history.
	MaxHistoryTurns = 10

	DefaultView     = "inbox"
	DefaultUserName = "User"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EmailSummary is a mailbox entry as the client sees it in a list view.
type EmailSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	IsRead  bool   `json:"isRead"`
}

// CurrentEmail is the message open in the client, if any.
type CurrentEmail struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	BodyText string `json:"bodyText"`
	Date     string `json:"date"`
}

// ConversationContext describes what the user is looking at.
type ConversationContext struct {
	CurrentView  string         `json:"currentView"`
	CurrentEmail *CurrentEmail  `json:"currentEmail"`
	Emails       []EmailSummary `json:"emails"`
	UserName     string         `json:"userName"`
	UserEmail    string         `json:"userEmail"`
}

func (c ConversationContext) view() string {
	if c.CurrentView == "" {
		return DefaultView
	}
	return c.CurrentView
}

func (c ConversationContext) userName() string {
	if c.UserName == "" {
		return DefaultUserName
	}
	return c.UserName
}

// BuildSystemPrompt renders the system instructions for ctx.
func BuildSystemPrompt(ctx ConversationContext) string {
	name := ctx.userName()
	view := ctx.view()

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI assistant for %s's email application.\n", name)
	fmt.Fprintf(&b, "The user's name is %s and their email is %s.\n", name, ctx.UserEmail)
	fmt.Fprintf(&b, "When composing emails, always sign off with %q (never \"[Your Name]\").\n\n", name)
	fmt.Fprintf(&b, "Current View: %s\n\n", view)

	writeEmailList(&b, view, ctx.Emails)
	writeCurrentEmail(&b, ctx.CurrentEmail)

	b.WriteString(actionInstructions)
	fmt.Fprintf(&b, rulesTemplate, name)
	return b.String()
}

func writeEmailList(b *strings.Builder, view string, emails []EmailSummary) {
	if len(emails) == 0 {
		b.WriteString("No emails loaded in current view.\n\n")
		return
	}

	fmt.Fprintf(b, "Recent emails in %s (%d loaded):\n", view, len(emails))
	for i, e := range emails[:min(len(emails), MaxPromptEmails)] {
		status := "UNREAD"
		if e.IsRead {
			status = "read"
		}
		fmt.Fprintf(b, "  %d. ID: %s | From: %s | Subject: %s | Date: %s | Status: %s\n",
			i+1, e.ID, e.Sender, e.Subject, e.Date, status)
		fmt.Fprintf(b, "     Preview: %s\n", e.Snippet)
	}
	b.WriteString("\n")
}

func writeCurrentEmail(b *strings.Builder, e *CurrentEmail) {
	if e == nil {
		return
	}
	body := e.BodyText
	if body == "" {
		body = e.Snippet
	}
	b.WriteString("Currently Viewed Email:\n")
	fmt.Fprintf(b, "- ID: %s\n", e.ID)
	fmt.Fprintf(b, "- From: %s\n", e.From)
	fmt.Fprintf(b, "- Subject: %s\n", e.Subject)
	if e.Date != "" {
		fmt.Fprintf(b, "- Date: %s\n", e.Date)
	}
	fmt.Fprintf(b, "- Preview: %s\n", e.Snippet)
	fmt.Fprintf(b, "- Full Content: %s\n\n", body)
}

// BuildMessages assembles the provider conversation: the system prompt, the
// last MaxHistoryTurns user/assistant turns of history, then message.
func BuildMessages(ctx ConversationContext, message string, history []ChatMessage) []ChatMessage {
	kept := make([]ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			kept = append(kept, m)
		}
	}
	if len(kept) > MaxHistoryTurns {
		kept = kept[len(kept)-MaxHistoryTurns:]
	}

	out := make([]ChatMessage, 0, len(kept)+2)
	out = append(out, ChatMessage{Role: RoleSystem, Content: BuildSystemPrompt(ctx)})
	out = append(out, kept...)
	out = append(out, ChatMessage{Role: RoleUser, Content: message})
	return out
}

const actionInstructions = `You help the user manage their mailbox by returning structured actions.

CRITICAL: Always respond with a single valid JSON object. Never respond with plain text.

Available Actions:
1. compose - Open the compose form pre-filled. Fields: type, to, subject, body, cc (optional), bcc (optional)
2. navigate - Switch the mailbox view. Fields: type, view (inbox, sent, drafts, starred, trash)
3. search - Filter the loaded view by text. Fields: type, query, filters (optional)
4. filter - Apply structured filters. Fields: type, filters {from, to, subject, after, before, isUnread}
5. open_email - Open an email by ID. Fields: type, emailId
6. summarize - Summarize one or more emails. Fields: type, emailIds (array), summary (your summary text)
7. reply - Start a reply to an email. Fields: type, emailId, body
8. send - Send the email currently in the compose form. Fields: type, requireConfirmation (optional)
9. save_draft - Save the email in the compose form as a draft. Fields: type
10. clear_filters - Remove all active filters. Fields: type
11. gmail_search - Search the whole Gmail mailbox (subject and body). Fields: type, query. Use it only when the email is not in the loaded list. The query is a Gmail search query such as "from:john invoice" or "subject:interview".
12. logout - Sign the user out. Fields: type
13. discard_compose - Close the compose form. Fields: type, needsConfirmation, saveDraft

Response Format:
{
  "action": {
    "type": "action_type",
    "...fields": "depending on the action type"
  },
  "message": "Short friendly explanation of what you are doing",
  "needsConfirmation": false
}

When no action is needed (answering a question, reporting that nothing was found), set action to null:
{
  "action": null,
  "message": "Your answer"
}

`

const rulesTemplate = `RULES:

FINDING EMAILS:
- When the user asks whether an email exists or asks you to find one, first look through the email list above.
- If a matching email is listed, return open_email with its ID and include a short summary in "message".
- If nothing in the list matches, return gmail_search with a Gmail query and tell the user you are searching the mailbox.
- Build queries from "from:", "subject:" and keywords. "email from abhijeet about interview" becomes "from:abhijeet interview".
- Never invent emails that are not in the list above.

SUMMARIZING:
- Summaries must use the email data above. Put the summary in "message" and return a summarize action.
- "What was the last email about" means the most recent email in the list.

COMPOSING:
- "Send an email" or "write an email" means a compose action with to, subject and body filled in. Ask the user to review it.
- Sign off as %q, never "[Your Name]".

LIMITATIONS:
- If you cannot do something, say so and list what you can help with.
- Do not repeat the user's request back to them.
- Ask for clarification when a request is ambiguous.
- Keep messages concise and friendly.
`
