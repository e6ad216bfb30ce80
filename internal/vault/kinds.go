package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound covers both "no such entry" and "entry owned by someone
	// else" with one message, so existence never leaks across owners.
	ErrNotFound = errors.New("entry not found")

	ErrInvalidEntry = errors.New("invalid entry")
)

// Entry is one owned record of any kind. Fields holds the kind's plaintext
// descriptive fields plus, at rest, the encrypted secret field.
type Entry struct {
	ID        string
	UserID    string
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Kind describes one record shape: which fields exist, which are required on
// write, which participate in substring search, and which single field is
// secret (ciphertext at rest). The three kinds share all CRUD logic.
type Kind struct {
	Name         string
	Route        string
	Collection   string
	Fields       []string
	Required     []string
	SearchFields []string
	SecretField  string
}

var (
	Websites = Kind{
		Name:         "website",
		Route:        "websites",
		Collection:   "website_entries",
		Fields:       []string{"name", "link", "purpose", "login_id", "password"},
		Required:     []string{"name", "link", "purpose"},
		SearchFields: []string{"name", "link", "purpose"},
		SecretField:  "password",
	}

	Apps = Kind{
		Name:         "app",
		Route:        "apps",
		Collection:   "app_entries",
		Fields:       []string{"app_name", "purpose", "username", "password"},
		Required:     []string{"app_name", "purpose"},
		SearchFields: []string{"app_name", "purpose", "username"},
		SecretField:  "password",
	}

	Notes = Kind{
		Name:         "note",
		Route:        "notes",
		Collection:   "other_notes",
		Fields:       []string{"title", "content"},
		Required:     []string{"title", "content"},
		SearchFields: []string{"title", "content"},
	}
)

// Kinds lists every record kind served by the vault.
func Kinds() []Kind {
	return []Kind{Websites, Apps, Notes}
}

// Collections returns the store collection names for all kinds.
func Collections() []string {
	ks := Kinds()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.Collection
	}
	return out
}

// normalize keeps only the kind's declared fields, filling absent ones with
// the empty string so writes are full replacements.
func (k Kind) normalize(fields map[string]string) map[string]string {
	out := make(map[string]string, len(k.Fields))
	for _, f := range k.Fields {
		out[f] = fields[f]
	}
	return out
}

func (k Kind) validate(fields map[string]string) error {
	for _, f := range k.Required {
		if strings.TrimSpace(fields[f]) == "" {
			return fmt.Errorf("%w: %s required", ErrInvalidEntry, f)
		}
	}
	return nil
}
