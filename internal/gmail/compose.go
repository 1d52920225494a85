package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
)

// outgoing is a plain-text message ready to be rendered as RFC 5322.
type outgoing struct {
	to         string
	subject    string
	body       string
	inReplyTo  string
	references string
}

// raw renders m and returns it base64url encoded, as the Gmail API expects
// in Message.Raw. Non-ASCII subjects are RFC 2047 encoded.
func (g *Gateway) raw(m outgoing) (string, error) {
	var h mail.Header
	h.SetDate(g.now())
	if to := strings.TrimSpace(m.to); to != "" {
		addrs, err := mail.ParseAddressList(to)
		if err != nil {
			return "", fmt.Errorf("invalid recipient address %q: %w", to, err)
		}
		h.SetAddressList("To", addrs)
	}
	h.SetSubject(m.subject)
	if m.inReplyTo != "" {
		h.Set("In-Reply-To", m.inReplyTo)
		h.Set("References", m.references)
	}
	h.Set("MIME-Version", "1.0")
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return "", fmt.Errorf("failed to create message writer: %w", err)
	}
	if _, err := io.WriteString(w, m.body); err != nil {
		return "", fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish message: %w", err)
	}

	return base64.URLEncoding.EncodeToString(buf.Bytes()), nil
}

// replySubject prefixes subject with "Re: " unless it already has one.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// threadReferences appends messageID to an existing References chain.
func threadReferences(references, messageID string) string {
	return strings.TrimSpace(references + " " + messageID)
}
