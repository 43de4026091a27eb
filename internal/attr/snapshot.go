package attr

import (
	"context"
	"sort"
	"sync"
)

// Entry is the serialized form of one attribute. Exactly one of the value
// fields is meaningful, selected by Kind.
type Entry struct {
	Key    string  `json:"k"`
	Kind   string  `json:"t"`
	Bool   bool    `json:"b,omitempty"`
	Long   int64   `json:"l,omitempty"`
	Double float64 `json:"d,omitempty"`
	Str    string  `json:"s,omitempty"`
}

// Snapshot is a persisted copy of one entity's store.
// Owner is a stable identity ("player:42", "boss:hollow_king@0", "world").
type Snapshot struct {
	Owner   string
	Entries []Entry
}

// SnapshotStore persists attribute snapshots.
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, snaps []Snapshot) error
	LoadSnapshot(ctx context.Context, owner string) (Snapshot, bool, error)
}

// Snapshot copies the store into its serialized form, sorted by key.
func (s *Store) Snapshot(owner string) Snapshot {
	entries := make([]Entry, 0, len(s.values))
	for k, v := range s.values {
		entries = append(entries, v.entry(k))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return Snapshot{Owner: owner, Entries: entries}
}

// Entry returns the serialized form of one key, or false if it is absent.
func (s *Store) Entry(key string) (Entry, bool) {
	v, ok := s.values[key]
	if !ok {
		return Entry{}, false
	}
	return v.entry(key), true
}

func (v value) entry(key string) Entry {
	e := Entry{Key: key, Kind: string(rune(v.kind))}
	switch v.kind {
	case KindBool:
		e.Bool = v.b
	case KindLong:
		e.Long = v.n
	case KindFloat, KindDouble:
		e.Double = v.f
	case KindString:
		e.Str = v.s
	}
	return e
}

// Restore loads snap into the store, overwriting keys it names. Entries with
// an unknown kind are skipped. Every restored key is flagged dirty so
// observers receive the loaded state.
func (s *Store) Restore(snap Snapshot) int {
	n := 0
	for _, e := range snap.Entries {
		if len(e.Kind) != 1 {
			continue
		}
		var v value
		switch Kind(e.Kind[0]) {
		case KindBool:
			v = value{kind: KindBool, b: e.Bool}
		case KindLong:
			v = value{kind: KindLong, n: e.Long}
		case KindFloat:
			v = value{kind: KindFloat, f: e.Double}
		case KindDouble:
			v = value{kind: KindDouble, f: e.Double}
		case KindString:
			v = value{kind: KindString, s: e.Str}
		default:
			continue
		}
		s.values[e.Key] = v
		s.dirty[e.Key] = struct{}{}
		n++
	}
	return n
}

// MemorySnapshots is an in-process SnapshotStore, used when persistence is
// disabled and in tests.
type MemorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{snaps: make(map[string]Snapshot)}
}

func (m *MemorySnapshots) SaveSnapshots(_ context.Context, snaps []Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range snaps {
		cp := Snapshot{Owner: s.Owner, Entries: append([]Entry(nil), s.Entries...)}
		m.snaps[s.Owner] = cp
	}
	return nil
}

func (m *MemorySnapshots) LoadSnapshot(_ context.Context, owner string) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[owner]
	return s, ok, nil
}
