// Package models defines client-side data models used by the gophchest CLI.
package models

import "strings"

// Entry is a single stored credential. It lives only inside the decrypted
// chest and is serialized as part of the chest plaintext.
type Entry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
	Trashed  bool   `json:"trashed,omitempty"`
}

// Entry field names, as accepted by Field and the collection Update call.
const (
	FieldTitle    = "title"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldURL      = "url"
	FieldTrashed  = "trashed"
)

// Field returns the string form of the named field and whether the name is known.
// Trashed is rendered as "true" or "false".
func (e Entry) Field(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "id":
		return e.ID, true
	case FieldTitle:
		return e.Title, true
	case FieldUsername:
		return e.Username, true
	case FieldPassword:
		return e.Password, true
	case FieldURL:
		return e.URL, true
	case FieldTrashed:
		if e.Trashed {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

// ExampleEntry is placed into every newly created chest.
func ExampleEntry(id string) Entry {
	return Entry{
		ID:       id,
		Title:    "Example",
		Username: "me@example.com",
		Password: "correct horse battery staple",
		URL:      "https://example.com",
	}
}

// ViewOverview is the short form printed by the list command.
type ViewOverview struct {
	ID       string
	Title    string
	Username string
	URL      string
}

func (e Entry) Overview() ViewOverview {
	return ViewOverview{ID: e.ID, Title: e.Title, Username: e.Username, URL: e.URL}
}
