package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"keybox/internal/crypto"
)

// EntryStore is the persistence boundary for owned records. Every call is
// scoped by owner; Replace and Delete are single match-then-mutate operations
// so racing writers resolve by store-level atomicity.
type EntryStore interface {
	Insert(ctx context.Context, collection string, e Entry) error
	// List returns the owner's entries newest-created first. A non-empty term
	// restricts to entries where any of searchFields contains it
	// case-insensitively.
	List(ctx context.Context, collection, userID string, searchFields []string, term string) ([]Entry, error)
	// Replace overwrites the entry's fields and updated timestamp, returning
	// the stored entry. ErrNotFound when no entry matches id and owner.
	Replace(ctx context.Context, collection, userID, id string, fields map[string]string, updatedAt time.Time) (Entry, error)
	Delete(ctx context.Context, collection, userID, id string) error
}

// Store applies the field cipher and ownership rules around an EntryStore.
// Secret fields are ciphertext whenever persisted and plaintext in every
// value returned to a caller, including create and update responses.
type Store struct {
	entries EntryStore
	cipher  *crypto.FieldCipher

	// Now stamps created/updated times; tests override it.
	Now func() time.Time
}

func NewStore(entries EntryStore, cipher *crypto.FieldCipher) *Store {
	return &Store{entries: entries, cipher: cipher, Now: time.Now}
}

func (s *Store) Create(ctx context.Context, kind Kind, userID string, fields map[string]string) (Entry, error) {
	fields = kind.normalize(fields)
	if err := kind.validate(fields); err != nil {
		return Entry{}, err
	}
	if err := s.seal(kind, fields); err != nil {
		return Entry{}, err
	}

	now := s.Now().UTC()
	e := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.entries.Insert(ctx, kind.Collection, e); err != nil {
		return Entry{}, fmt.Errorf("insert %s: %w", kind.Name, err)
	}
	return s.reveal(kind, e), nil
}

func (s *Store) List(ctx context.Context, kind Kind, userID, search string) ([]Entry, error) {
	entries, err := s.entries.List(ctx, kind.Collection, userID, kind.SearchFields, search)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Name, err)
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = s.reveal(kind, e)
	}
	return out, nil
}

// Update is a full replacement of the kind's mutable fields; absent optional
// fields are cleared, and the updated timestamp is refreshed.
func (s *Store) Update(ctx context.Context, kind Kind, userID, id string, fields map[string]string) (Entry, error) {
	fields = kind.normalize(fields)
	if err := kind.validate(fields); err != nil {
		return Entry{}, err
	}
	if err := s.seal(kind, fields); err != nil {
		return Entry{}, err
	}

	e, err := s.entries.Replace(ctx, kind.Collection, userID, id, fields, s.Now().UTC())
	if err != nil {
		return Entry{}, err
	}
	return s.reveal(kind, e), nil
}

func (s *Store) Delete(ctx context.Context, kind Kind, userID, id string) error {
	return s.entries.Delete(ctx, kind.Collection, userID, id)
}

func (s *Store) seal(kind Kind, fields map[string]string) error {
	if kind.SecretField == "" || fields[kind.SecretField] == "" {
		return nil
	}
	ct, err := s.cipher.Encrypt(fields[kind.SecretField])
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", kind.SecretField, err)
	}
	fields[kind.SecretField] = ct
	return nil
}

// reveal copies the entry and decrypts the secret field for the caller; the
// stored value stays untouched.
func (s *Store) reveal(kind Kind, e Entry) Entry {
	fields := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	if kind.SecretField != "" {
		fields[kind.SecretField] = s.cipher.Decrypt(fields[kind.SecretField])
	}
	e.Fields = fields
	return e
}
