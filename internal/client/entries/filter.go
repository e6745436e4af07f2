package entries

import (
	"strings"

	"github.com/dmitrijs2005/gophchest/internal/client/models"
)

// Predicate selects entries for Filter.
type Predicate func(models.Entry) bool

// Filter returns, in collection order, the entries matching every predicate.
// The collection is not modified.
func (c *Collection) Filter(preds ...Predicate) []models.Entry {
	all := c.List()
	out := make([]models.Entry, 0, len(all))
	for _, e := range all {
		if matchAll(e, preds) {
			out = append(out, e)
		}
	}
	return out
}

func matchAll(e models.Entry, preds []Predicate) bool {
	for _, p := range preds {
		if !p(e) {
			return false
		}
	}
	return true
}

// ByField matches entries whose named field equals value.
// Unknown fields never match.
func ByField(field, value string) Predicate {
	return func(e models.Entry) bool {
		v, ok := e.Field(field)
		return ok && v == value
	}
}

// Trashed matches entries by their trashed flag.
func Trashed(trashed bool) Predicate {
	return func(e models.Entry) bool { return e.Trashed == trashed }
}

// Search matches entries whose title, username or url contains query,
// ignoring case. An empty query matches everything.
func Search(query string) Predicate {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(e models.Entry) bool {
		if q == "" {
			return true
		}
		for _, s := range []string{e.Title, e.Username, e.URL} {
			if strings.Contains(strings.ToLower(s), q) {
				return true
			}
		}
		return false
	}
}
