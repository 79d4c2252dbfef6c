package store

import (
	"context"
	"sync"

	"github.com/stewardlab/steward/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Service. It keeps
// entities of type *T mapped by a comparable key K obtained from the supplied
// key selector, and optionally filters List results through a matcher so that
// entity stores can support principal/status style queries without
// re-implementing the map bookkeeping.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	keySelector func(*T) K
	matcher     func(*T, []*dao.Parameter) bool
	cloner      func(*T) *T
}

// Option customises a MemoryStore.
type Option[K comparable, T any] func(*MemoryStore[K, T])

// WithMatcher installs the List filter predicate. A nil matcher (the
// default) makes List return every record regardless of parameters.
func WithMatcher[K comparable, T any](matcher func(*T, []*dao.Parameter) bool) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.matcher = matcher
	}
}

// WithCloner installs a copy function applied on the way in (Save) and out
// (Load, List). With a cloner every caller works on a private snapshot, so
// concurrent readers never observe another goroutine mutating a loaded
// record. Without one (the default) the store hands out the live pointer.
func WithCloner[K comparable, T any](cloner func(*T) *T) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.cloner = cloner
	}
}

// NewMemoryStore creates a new MemoryStore. keySelector extracts the entity
// key (usually the ID field) from a value.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, options ...Option[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = s.clone(v)
	return nil
}

func (s *MemoryStore[K, T]) clone(v *T) *T {
	if s.cloner == nil {
		return v
	}
	return s.cloner(v)
}

// Load returns a record by key, or dao.ErrNotFound.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// List returns all stored records matching the supplied parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, v := range s.records {
		if s.matcher != nil && len(parameters) > 0 && !s.matcher(v, parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	return out, nil
}

var _ dao.Service[string, any] = (*MemoryStore[string, any])(nil)
