package idguard

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// Record is a stored identity record as returned by a RecordStore. Fields
// holds the stored, possibly protected, values.
type Record struct {
	ID        string
	Fields    map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of r whose Fields map can be modified freely.
func (r Record) Clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

// RecordStore persists records and finds them by lookup field value.
//
// Implementations must not interpret lookup values: a raw identifier and a
// digest are both compared as plain strings. FindByLookup returns an error
// wrapping ErrNotFound when nothing matches.
type RecordStore interface {
	Save(ctx context.Context, lookupField string, fields map[string]string) (Record, error)
	FindByLookup(ctx context.Context, lookupField, key string) (Record, error)
}

// Register protects fields for the current mode and saves them. When some
// fields fail protection the record is not saved and the per-field errors
// are returned.
func Register(ctx context.Context, g *Guard, store RecordStore, fields map[string]string) (Record, error) {
	stored, err := g.ProtectForWrite(ctx, fields)
	if err != nil {
		return Record{}, fmt.Errorf("protect record: %w", err)
	}
	rec, err := store.Save(ctx, g.lookupField, stored)
	if err != nil {
		return Record{}, fmt.Errorf("save record: %w", err)
	}
	return rec, nil
}

// Lookup resolves rawKey against store and returns the record with its
// fields revealed for display.
func Lookup(ctx context.Context, g *Guard, store RecordStore, rawKey string) (Record, error) {
	rec, err := g.ResolveByLookupKey(ctx, rawKey, func(ctx context.Context, key string) (Record, error) {
		return store.FindByLookup(ctx, g.lookupField, key)
	})
	if err != nil {
		return Record{}, err
	}
	rec.Fields = g.RevealForDisplay(ctx, rec.Fields)
	return rec, nil
}
