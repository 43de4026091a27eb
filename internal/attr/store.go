// Package attr is the durable per-entity attribute store.
//
// A Store is a typed key/value bag. Values are replicated to observers (keys
// flagged with MarkDirty are drained once per tick) and persisted as
// snapshots. Accessed only from the game loop goroutine; no locks.
package attr

import (
	"sort"
	"strings"
)

// Kind tags the scalar type held under a key.
type Kind byte

const (
	KindBool   Kind = 'b'
	KindLong   Kind = 'l'
	KindFloat  Kind = 'f'
	KindDouble Kind = 'd'
	KindString Kind = 's'
)

type value struct {
	kind Kind
	b    bool
	n    int64
	f    float64 // float and double share storage; Float() rounds to float32
	s    string
}

type Store struct {
	values map[string]value
	dirty  map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		values: make(map[string]value, 16),
		dirty:  make(map[string]struct{}, 8),
	}
}

func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok || v.kind != KindBool {
		return def
	}
	return v.b
}

// GetLong returns an integer value. Float/double values are truncated.
func (s *Store) GetLong(key string, def int64) int64 {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindLong:
		return v.n
	case KindFloat, KindDouble:
		return int64(v.f)
	}
	return def
}

func (s *Store) GetFloat(key string, def float32) float32 {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindFloat, KindDouble:
		return float32(v.f)
	case KindLong:
		return float32(v.n)
	}
	return def
}

func (s *Store) GetDouble(key string, def float64) float64 {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch v.kind {
	case KindFloat, KindDouble:
		return v.f
	case KindLong:
		return float64(v.n)
	}
	return def
}

func (s *Store) GetString(key string, def string) string {
	v, ok := s.values[key]
	if !ok || v.kind != KindString {
		return def
	}
	return v.s
}

func (s *Store) SetBool(key string, b bool) {
	s.values[key] = value{kind: KindBool, b: b}
}

func (s *Store) SetLong(key string, n int64) {
	s.values[key] = value{kind: KindLong, n: n}
}

func (s *Store) SetFloat(key string, f float32) {
	s.values[key] = value{kind: KindFloat, f: float64(f)}
}

func (s *Store) SetDouble(key string, f float64) {
	s.values[key] = value{kind: KindDouble, f: f}
}

func (s *Store) SetString(key string, str string) {
	s.values[key] = value{kind: KindString, s: str}
}

// Remove deletes a key and flags it for replication.
func (s *Store) Remove(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty[key] = struct{}{}
}

// MarkDirty flags key for replication to observers. Must be called whenever a
// client-visible value changes.
func (s *Store) MarkDirty(key string) {
	s.dirty[key] = struct{}{}
}

// IsDirty reports whether key is waiting to be replicated.
func (s *Store) IsDirty(key string) bool {
	_, ok := s.dirty[key]
	return ok
}

// DrainDirty returns the flagged keys in sorted order and clears the set.
func (s *Store) DrainDirty() []string {
	if len(s.dirty) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	clear(s.dirty)
	sort.Strings(keys)
	return keys
}

// Keys returns all keys starting with prefix, sorted.
func (s *Store) Keys(prefix string) []string {
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Len() int {
	return len(s.values)
}
