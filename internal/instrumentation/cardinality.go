package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// Always use these helpers when recording metrics with user identifiers or
// request paths.

// RouteUnmatched is the path label for requests that matched no route.
const RouteUnmatched = "unmatched"

// ExtractUserDomain extracts the domain part from an email address.
// This reduces cardinality by using the domain instead of the full email.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.TrimSuffix(strings.ToLower(parts[1]), ">")
	}

	return "unknown"
}

// RouteLabel turns a ServeMux pattern such as "GET /api/mail/thread/{id}"
// into a path label ("/api/mail/thread/{id}"). Path values never reach the label.
func RouteLabel(pattern string) string {
	if pattern == "" {
		return RouteUnmatched
	}
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		pattern = strings.TrimSpace(pattern[i+1:])
	}
	return strings.TrimSuffix(pattern, "{$}")
}

// Gmail operation names used for Google API metrics and spans.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationMetadata = "get_metadata"
	OperationThread   = "thread"
	OperationSearch   = "search"
	OperationSend     = "send"
	OperationModify   = "batch_modify"
	OperationDraft    = "create_draft"
	OperationTrash    = "trash"
	OperationUserInfo = "userinfo"
)
