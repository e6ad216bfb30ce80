package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryEntryStore mirrors the Mongo store's semantics in-process for tests
// and dev runs: owner scoping, case-insensitive OR substring search, and
// newest-created-first ordering.
type MemoryEntryStore struct {
	mu      sync.Mutex
	byColl  map[string]map[string]*memEntry
	nextSeq int
}

type memEntry struct {
	entry Entry
	seq   int // insertion order, breaks created_at ties deterministically
}

func NewMemoryEntryStore() *MemoryEntryStore {
	return &MemoryEntryStore{byColl: map[string]map[string]*memEntry{}}
}

func (m *MemoryEntryStore) coll(name string) map[string]*memEntry {
	c, ok := m.byColl[name]
	if !ok {
		c = map[string]*memEntry{}
		m.byColl[name] = c
	}
	return c
}

func (m *MemoryEntryStore) Insert(ctx context.Context, collection string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	m.coll(collection)[e.ID] = &memEntry{entry: copyEntry(e), seq: m.nextSeq}
	return nil
}

func (m *MemoryEntryStore) List(ctx context.Context, collection, userID string, searchFields []string, term string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*memEntry
	for _, me := range m.coll(collection) {
		if me.entry.UserID != userID {
			continue
		}
		if term != "" && !matchesTerm(me.entry, searchFields, term) {
			continue
		}
		matched = append(matched, me)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]Entry, len(matched))
	for i, me := range matched {
		out[i] = copyEntry(me.entry)
	}
	return out, nil
}

func (m *MemoryEntryStore) Replace(ctx context.Context, collection, userID, id string, fields map[string]string, updatedAt time.Time) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.coll(collection)[id]
	if !ok || me.entry.UserID != userID {
		return Entry{}, ErrNotFound
	}
	for k, v := range fields {
		me.entry.Fields[k] = v
	}
	me.entry.UpdatedAt = updatedAt
	return copyEntry(me.entry), nil
}

func (m *MemoryEntryStore) Delete(ctx context.Context, collection, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.coll(collection)[id]
	if !ok || me.entry.UserID != userID {
		return ErrNotFound
	}
	delete(m.coll(collection), id)
	return nil
}

// Raw returns the stored entry as persisted, without any decryption. Tests
// use it to assert secret fields are ciphertext at rest.
func (m *MemoryEntryStore) Raw(collection, id string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	me, ok := m.coll(collection)[id]
	if !ok {
		return Entry{}, false
	}
	return copyEntry(me.entry), true
}

func matchesTerm(e Entry, searchFields []string, term string) bool {
	term = strings.ToLower(term)
	for _, f := range searchFields {
		if strings.Contains(strings.ToLower(e.Fields[f]), term) {
			return true
		}
	}
	return false
}

func copyEntry(e Entry) Entry {
	fields := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	e.Fields = fields
	return e
}
