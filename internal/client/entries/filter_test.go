package entries

import (
	"testing"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *Collection {
	t.Helper()
	c := New()
	require.NoError(t, c.Reset([]models.Entry{
		{ID: "1", Title: "Bank", Username: "alice", URL: "https://bank.example"},
		{ID: "2", Title: "Mail", Username: "bob", URL: "https://mail.example", Trashed: true},
		{ID: "3", Title: "Forum", Username: "alice", URL: "https://forum.example"},
	}))
	return c
}

func ids(list []models.Entry) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	c := seeded(t)

	tests := []struct {
		name  string
		preds []Predicate
		want  []string
	}{
		{"no predicates", nil, []string{"1", "2", "3"}},
		{"not trashed", []Predicate{Trashed(false)}, []string{"1", "3"}},
		{"trashed", []Predicate{Trashed(true)}, []string{"2"}},
		{"virtual trashed field", []Predicate{ByField("trashed", "true")}, []string{"2"}},
		{"by username", []Predicate{ByField("username", "alice")}, []string{"1", "3"}},
		{"unknown field", []Predicate{ByField("color", "red")}, []string{}},
		{"search", []Predicate{Search("MAIL")}, []string{"2"}},
		{"empty search", []Predicate{Search("  ")}, []string{"1", "2", "3"}},
		{"combined", []Predicate{ByField("username", "alice"), Search("forum")}, []string{"3"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(c.Filter(tc.preds...)))
		})
	}
}

func TestFilter_DoesNotMutateOrNotify(t *testing.T) {
	c := seeded(t)
	events := record(c)

	out := c.Filter(Trashed(false))
	out[0].Title = "changed"

	assert.Equal(t, 3, c.Len())
	e, _ := c.Get("1")
	assert.Equal(t, "Bank", e.Title)
	assert.Empty(t, *events)
}
