package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUserDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@example.com", "example.com"},
		{"Jane@Example.COM", "example.com"},
		{"Jane <jane@corp.io>", "corp.io"},
		{"invalid", "unknown"},
		{"a@b@c", "unknown"},
		{"trailing@", "unknown"},
		{"", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractUserDomain(tt.email))
		})
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"GET /api/mail/thread/{id}", "/api/mail/thread/{id}"},
		{"POST /api/assistant", "/api/assistant"},
		{"/healthz", "/healthz"},
		{"GET /{$}", "/"},
		{"", RouteUnmatched},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteLabel(tt.pattern))
		})
	}
}
