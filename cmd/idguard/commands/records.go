package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hengadev/idguard"
	"github.com/hengadev/idguard/providers/store/s3store"
	"github.com/hengadev/idguard/providers/store/sqlitestore"
)

// Record store names accepted by --store.
const (
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
)

// StoreSettings selects the record store used by register and lookup.
type StoreSettings struct {
	Kind   string
	DSN    string
	Bucket string
	Prefix string
	Region string
}

// OpenStore opens the record store named by s.Kind. The returned close
// function must be called when done.
func OpenStore(ctx context.Context, s StoreSettings) (idguard.RecordStore, func() error, error) {
	switch s.Kind {
	case "", StoreSQLite:
		store, err := sqlitestore.Open(ctx, s.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoreS3:
		store, err := s3store.New(ctx, s3store.Config{Bucket: s.Bucket, Prefix: s.Prefix, Region: s.Region})
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("invalid store: %s (valid options: sqlite, s3)", s.Kind)
	}
}

// recordOutput is the JSON shape of a record.
type recordOutput struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

func outputRecord(io IOTuple, rec idguard.Record, format string) error {
	if format == "json" {
		return outputJSON(io.Writer, recordOutput{ID: rec.ID, Fields: rec.Fields})
	}
	fmt.Fprintf(io.Writer, "id: %s\n", rec.ID)
	return outputFields(io.Writer, rec.Fields, format)
}

// RunRegister protects fields and saves them as a record. The stored form
// is printed, so in protected mode the output shows digests and tokens.
func RunRegister(ctx context.Context, g *idguard.Guard, store idguard.RecordStore, logger idguard.Logger, fields map[string]string, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if strings.TrimSpace(fields[g.LookupField()]) == "" {
		return fmt.Errorf("%s is required", g.LookupField())
	}

	rec, err := idguard.Register(ctx, g, store, fields)
	if err != nil {
		return fmt.Errorf("failed to register record: %w", err)
	}

	logger.Info("record registered", "id", rec.ID, "mode", g.Mode(ctx).String())
	return outputRecord(io, rec, format)
}

// RunLookup finds the record for a raw lookup key, trying the key as stored
// and then its digest, and prints it revealed for display.
func RunLookup(ctx context.Context, g *idguard.Guard, store idguard.RecordStore, logger idguard.Logger, rawKey, format string, io IOTuple) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	rec, err := idguard.Lookup(ctx, g, store, rawKey)
	if err != nil {
		if errors.Is(err, idguard.ErrNotFound) {
			return fmt.Errorf("no record for %s: %w", g.LookupField(), err)
		}
		return fmt.Errorf("failed to look up record: %w", err)
	}

	logger.Debug("record found", "id", rec.ID)
	return outputRecord(io, rec, format)
}
