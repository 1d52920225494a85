package gmail

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	gmail "google.golang.org/api/gmail/v1"
)

// ExtractBody walks a message payload and returns its best HTML and plain
// text renditions. Parts without data yield empty strings.
//
// Within nested multipart containers an inner HTML body always replaces the
// outer one, while inner text only fills an outer text that is still empty.
func ExtractBody(part *gmail.MessagePart) (bodyHTML, bodyText string) {
	if part == nil {
		return "", ""
	}

	if hasData(part) {
		decoded := decodeBody(part.Body.Data)
		if strings.Contains(part.MimeType, "html") {
			bodyHTML = decoded
		} else {
			bodyText = decoded
		}
	}

	scanParts(part.Parts, &bodyHTML, &bodyText)
	return bodyHTML, bodyText
}

func scanParts(parts []*gmail.MessagePart, bodyHTML, bodyText *string) {
	for _, child := range parts {
		if child == nil {
			continue
		}
		switch {
		case child.MimeType == "text/html":
			if hasData(child) {
				*bodyHTML = decodeBody(child.Body.Data)
			}
		case child.MimeType == "text/plain":
			if hasData(child) {
				*bodyText = decodeBody(child.Body.Data)
			}
		case strings.Contains(child.MimeType, "multipart"):
			var innerHTML, innerText string
			scanParts(child.Parts, &innerHTML, &innerText)
			if innerHTML != "" {
				*bodyHTML = innerHTML
			}
			if innerText != "" && *bodyText == "" {
				*bodyText = innerText
			}
		}
	}
}

func hasData(part *gmail.MessagePart) bool {
	return part.Body != nil && part.Body.Data != ""
}

// decodeBody decodes Gmail body data. Gmail sends padded base64url, but
// unpadded and standard alphabets are accepted too. Undecodable data yields "".
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if raw, err := enc.DecodeString(data); err == nil {
			return toValidUTF8(raw)
		}
	}
	return ""
}

// toValidUTF8 replaces every invalid byte with U+FFFD.
func toValidUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range string(raw) {
		b.WriteRune(r)
	}
	return b.String()
}
