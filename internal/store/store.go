package store

import (
	"sort"

	"jsondb/internal/model"
)

// Store is the single source of truth for current key state. It is
// intentionally dumb: no verb logic, no locking. The engine guards it and
// decides what gets persisted; during replay it is rebuilt wholesale.
type Store struct {
	data map[string]*model.Value
}

func New() *Store {
	return &Store{data: make(map[string]*model.Value)}
}

// Get returns the value at key without copying. Callers that hand the
// value outside the engine's lock must clone it first.
func (s *Store) Get(key string) (*model.Value, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Apply overwrites key with v and returns the previous value, if any.
func (s *Store) Apply(key string, v *model.Value) (*model.Value, bool) {
	prev, ok := s.data[key]
	s.data[key] = v
	return prev, ok
}

func (s *Store) Len() int {
	return len(s.data)
}

// Keys returns all keys in lexical order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
