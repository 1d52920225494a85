package gmail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestFilter_BuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		base   string
		want   string
	}{
		{name: "empty", want: ""},
		{name: "base only", base: "  has:attachment ", want: "has:attachment"},
		{
			name:   "all fields",
			base:   "invoice",
			filter: Filter{From: "billing@example.com", To: "me@example.com", Subject: "March", After: "2024/03/01", Before: "2024/04/01", IsUnread: boolPtr(true)},
			want:   "invoice from:billing@example.com to:me@example.com subject:March after:2024/03/01 before:2024/04/01 is:unread",
		},
		{
			name:   "read only",
			filter: Filter{IsUnread: boolPtr(false)},
			want:   "is:read",
		},
		{
			name:   "values with spaces are quoted",
			filter: Filter{From: "Jane Doe", Subject: `quarterly "numbers" review`},
			want:   `from:"Jane Doe" subject:"quarterly numbers review"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.BuildQuery(tt.base))
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	assert.NoError(t, Filter{}.Validate())
	assert.NoError(t, Filter{After: "2024/01/31", Before: "2024/02/01"}.Validate())

	err := Filter{After: "2024-01-31"}.Validate()
	assert.ErrorContains(t, err, `invalid after date "2024-01-31"`)

	err = Filter{Before: "yesterday"}.Validate()
	assert.ErrorContains(t, err, "invalid before date")
}

func TestListOptions_Labels(t *testing.T) {
	assert.Equal(t, []string{LabelInbox}, ListOptions{}.labels())
	assert.Empty(t, ListOptions{LabelIDs: []string{}}.labels())
	assert.Equal(t, []string{"SENT"}, ListOptions{LabelIDs: []string{"SENT"}}.labels())
}

func TestClampMaxResults(t *testing.T) {
	assert.Equal(t, int64(20), clampMaxResults(0, DefaultListMaxResults))
	assert.Equal(t, int64(10), clampMaxResults(-3, DefaultSearchMaxResults))
	assert.Equal(t, int64(5), clampMaxResults(5, DefaultListMaxResults))
	assert.Equal(t, int64(MaxResultsLimit), clampMaxResults(10_000, DefaultListMaxResults))
}
