// Package s3store provides an Amazon S3 backed idguard.RecordStore.
//
// Each record is one JSON object whose key is derived from the stored
// lookup value, so a lookup is a single GetObject. Lookup values may be raw
// identifiers; pick a bucket policy accordingly.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/hengadev/idguard"
)

// objectClient defines the S3 operations used by Store (allows mocking)
type objectClient interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config holds configuration for the S3 store.
type Config struct {
	// Bucket is the bucket holding the records (required).
	Bucket string

	// Prefix is prepended to every object key. Defaults to "identities/".
	Prefix string

	// Region is the AWS region (e.g., "us-east-1")
	// If empty, uses AWS_REGION environment variable or AWS config file
	Region string

	// AWSConfig is an optional pre-configured AWS config
	// If provided, Region is ignored
	AWSConfig *aws.Config
}

// Store persists identity records as S3 objects.
type Store struct {
	client objectClient
	bucket string
	prefix string
}

// object is the stored JSON document.
type object struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// New creates a new S3 store.
//
// Usage:
//
//	store, err := s3store.New(ctx, s3store.Config{Bucket: "portal-identities", Region: "af-south-1"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := idguard.Lookup(ctx, guard, store, omang)
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket cannot be empty", idguard.ErrInvalidConfiguration)
	}

	var awsConfig aws.Config
	var err error

	if cfg.AWSConfig != nil {
		awsConfig = *cfg.AWSConfig
	} else {
		opts := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}

		awsConfig, err = config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}

	return newStore(s3.NewFromConfig(awsConfig), cfg.Bucket, cfg.Prefix), nil
}

func newStore(client objectClient, bucket, prefix string) *Store {
	if prefix == "" {
		prefix = "identities/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

// objectKey maps a lookup value to its object key. Values are path escaped
// so they cannot introduce extra key segments.
func (s *Store) objectKey(lookupField, key string) string {
	return s.prefix + url.PathEscape(lookupField) + "/" + url.PathEscape(key) + ".json"
}

// Save writes fields under the value of lookupField, keeping the ID and
// creation time of an existing record with the same lookup value.
func (s *Store) Save(ctx context.Context, lookupField string, fields map[string]string) (idguard.Record, error) {
	key := fields[lookupField]
	if key == "" {
		return idguard.Record{}, fmt.Errorf("%w: lookup field %q is empty", idguard.ErrInvalidFormat, lookupField)
	}

	now := time.Now().UTC()
	obj := object{ID: uuid.NewString(), Fields: maps.Clone(fields), CreatedAt: now, UpdatedAt: now}

	existing, err := s.get(ctx, lookupField, key)
	switch {
	case err == nil:
		obj.ID = existing.ID
		obj.CreatedAt = existing.CreatedAt
	case !errors.Is(err, idguard.ErrNotFound):
		return idguard.Record{}, err
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return idguard.Record{}, fmt.Errorf("failed to encode record: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(lookupField, key)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return idguard.Record{}, fmt.Errorf("failed to put record object: %w", err)
	}

	return obj.record(), nil
}

// FindByLookup returns the record stored under key.
func (s *Store) FindByLookup(ctx context.Context, lookupField, key string) (idguard.Record, error) {
	obj, err := s.get(ctx, lookupField, key)
	if err != nil {
		return idguard.Record{}, err
	}
	return obj.record(), nil
}

func (s *Store) get(ctx context.Context, lookupField, key string) (object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(lookupField, key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return object{}, fmt.Errorf("%w: %s", idguard.ErrNotFound, lookupField)
		}
		return object{}, fmt.Errorf("failed to get record object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return object{}, fmt.Errorf("failed to read record object: %w", err)
	}

	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return object{}, fmt.Errorf("failed to decode record object: %w", err)
	}
	return obj, nil
}

func (o object) record() idguard.Record {
	return idguard.Record{ID: o.ID, Fields: o.Fields, CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt}
}
