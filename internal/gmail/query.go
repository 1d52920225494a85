package gmail

import (
	"fmt"
	"strings"
	"time"
)

// Result size defaults and the Gmail API page size ceiling.
const (
	DefaultListMaxResults   = 20
	DefaultSearchMaxResults = 10
	MaxResultsLimit         = 500
)

// filterDateLayout is the date format Gmail accepts in after:/before: terms.
const filterDateLayout = "2006/01/02"

// Filter holds structured search criteria that render into a Gmail query.
type Filter struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Subject  string `json:"subject,omitempty"`
	After    string `json:"after,omitempty"`
	Before   string `json:"before,omitempty"`
	IsUnread *bool  `json:"isUnread,omitempty"`
}

// ListOptions is the request body of the list operation.
// A nil LabelIDs means the inbox; an explicit empty list disables label filtering.
type ListOptions struct {
	LabelIDs   []string `json:"labelIds"`
	MaxResults int64    `json:"maxResults"`
	Query      string   `json:"q"`
	PageToken  string   `json:"pageToken,omitempty"`
	Filter
}

// Validate checks the filter dates.
func (f Filter) Validate() error {
	if err := validateDate("after", f.After); err != nil {
		return err
	}
	return validateDate("before", f.Before)
}

func validateDate(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(filterDateLayout, value); err != nil {
		return fmt.Errorf("invalid %s date %q, expected YYYY/MM/DD", name, value)
	}
	return nil
}

// BuildQuery appends the filter terms to base, returning a Gmail search query.
func (f Filter) BuildQuery(base string) string {
	var terms []string
	if base = strings.TrimSpace(base); base != "" {
		terms = append(terms, base)
	}
	if f.From != "" {
		terms = append(terms, "from:"+quoteTerm(f.From))
	}
	if f.To != "" {
		terms = append(terms, "to:"+quoteTerm(f.To))
	}
	if f.Subject != "" {
		terms = append(terms, "subject:"+quoteTerm(f.Subject))
	}
	if f.After != "" {
		terms = append(terms, "after:"+f.After)
	}
	if f.Before != "" {
		terms = append(terms, "before:"+f.Before)
	}
	if f.IsUnread != nil {
		if *f.IsUnread {
			terms = append(terms, "is:unread")
		} else {
			terms = append(terms, "is:read")
		}
	}
	return strings.Join(terms, " ")
}

func quoteTerm(v string) string {
	v = strings.TrimSpace(v)
	if strings.ContainsAny(v, " \t") {
		return `"` + strings.ReplaceAll(v, `"`, "") + `"`
	}
	return v
}

func (o ListOptions) labels() []string {
	if o.LabelIDs == nil {
		return []string{LabelInbox}
	}
	return o.LabelIDs
}

func clampMaxResults(n, fallback int64) int64 {
	switch {
	case n <= 0:
		return fallback
	case n > MaxResultsLimit:
		return MaxResultsLimit
	default:
		return n
	}
}
