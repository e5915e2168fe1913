package idguard

// This file provides test utilities for use in examples and tests of
// packages built on idguard.

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TestRootSecret is the root secret used by NewTestGuard.
const TestRootSecret = "test-secret"

// NewTestGuard creates a Guard with the patient profile, TestRootSecret and
// a fixed mode. Logging is silenced unless a WithLogger option is given.
// It panics if the Guard cannot be built.
func NewTestGuard(protected bool, opts ...Option) *Guard {
	cfg := PatientProfile()
	cfg.RootSecret = TestRootSecret
	cfg.ProtectedMode = protected

	opts = append([]Option{WithLogger(NopLogger{})}, opts...)
	g, err := New(cfg, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create test guard: %v", err))
	}
	return g
}

// MemoryStore is an in-memory RecordStore for unit tests and examples.
// All data is lost when the process terminates.
//
// Usage:
//
//	store := idguard.NewMemoryStore()
//	rec, err := idguard.Register(ctx, guard, store, fields)
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record // stored lookup value -> record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Save stores a copy of fields under the value of lookupField. A record with
// the same lookup value is replaced.
func (s *MemoryStore) Save(_ context.Context, lookupField string, fields map[string]string) (Record, error) {
	key := fields[lookupField]
	if key == "" {
		return Record{}, fmt.Errorf("%w: lookup field %q is empty", ErrInvalidFormat, lookupField)
	}

	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Fields:    maps.Clone(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.records[key]; ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
	}
	s.records[key] = rec
	return rec.Clone(), nil
}

// FindByLookup returns the record whose stored lookup value equals key.
func (s *MemoryStore) FindByLookup(_ context.Context, lookupField, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok || rec.Fields[lookupField] != key {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, lookupField)
	}
	return rec.Clone(), nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
