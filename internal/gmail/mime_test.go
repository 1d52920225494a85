package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func leaf(mimeType, content string) *gmail.MessagePart {
	p := &gmail.MessagePart{MimeType: mimeType, Body: &gmail.MessagePartBody{}}
	if content != "" {
		p.Body.Data = b64(content)
	}
	return p
}

func container(mimeType string, parts ...*gmail.MessagePart) *gmail.MessagePart {
	return &gmail.MessagePart{MimeType: mimeType, Body: &gmail.MessagePartBody{}, Parts: parts}
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name     string
		part     *gmail.MessagePart
		wantHTML string
		wantText string
	}{
		{
			name: "nil payload",
			part: nil,
		},
		{
			name: "no data anywhere",
			part: container("multipart/mixed",
				leaf("text/plain", ""),
				container("multipart/alternative", leaf("text/html", "")),
			),
		},
		{
			name:     "top-level plain text",
			part:     leaf("text/plain", "hello"),
			wantText: "hello",
		},
		{
			name:     "top-level html",
			part:     leaf("text/html", "<p>hello</p>"),
			wantHTML: "<p>hello</p>",
		},
		{
			name:     "alternative html first",
			part:     container("multipart/alternative", leaf("text/html", "<b>hi</b>"), leaf("text/plain", "hi")),
			wantHTML: "<b>hi</b>",
			wantText: "hi",
		},
		{
			name:     "alternative text first",
			part:     container("multipart/alternative", leaf("text/plain", "hi"), leaf("text/html", "<b>hi</b>")),
			wantHTML: "<b>hi</b>",
			wantText: "hi",
		},
		{
			name: "nested alternative inside mixed",
			part: container("multipart/mixed",
				container("multipart/alternative", leaf("text/plain", "inner text"), leaf("text/html", "inner html")),
				leaf("application/pdf", "%PDF"),
			),
			wantHTML: "inner html",
			wantText: "inner text",
		},
		{
			name: "outer text is kept over nested text",
			part: container("multipart/mixed",
				leaf("text/plain", "outer text"),
				container("multipart/alternative", leaf("text/plain", "inner text"), leaf("text/html", "inner html")),
			),
			wantHTML: "inner html",
			wantText: "outer text",
		},
		{
			name: "nested html overwrites outer html",
			part: container("multipart/mixed",
				leaf("text/html", "outer html"),
				container("multipart/related", leaf("text/html", "inner html")),
			),
			wantHTML: "inner html",
		},
		{
			name: "deeply nested",
			part: container("multipart/mixed",
				container("multipart/related",
					container("multipart/alternative", leaf("text/plain", "deep text"), leaf("text/html", "deep html")),
				),
			),
			wantHTML: "deep html",
			wantText: "deep text",
		},
		{
			name:     "text/plain with charset is not an exact match",
			part:     container("multipart/alternative", leaf("text/plain; charset=utf-8", "ignored"), leaf("text/html", "kept")),
			wantHTML: "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, text := ExtractBody(tt.part)
			assert.Equal(t, tt.wantHTML, html)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"padded base64url", base64.URLEncoding.EncodeToString([]byte("hello world")), "hello world"},
		{"unpadded base64url", base64.RawURLEncoding.EncodeToString([]byte("hello world")), "hello world"},
		{"standard alphabet", "Pz4/", "?>?"},
		{"utf-8", b64("Grüße"), "Grüße"},
		{"invalid utf-8 replaced per byte", b64("ok\xff\xfeok"), "ok\uFFFD\uFFFDok"},
		{"garbage", "!!not base64!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeBody(tt.data))
		})
	}
}
