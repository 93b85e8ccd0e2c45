// Package storage keeps the latest transform run per equipment item in
// NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketRuns is the KV bucket holding transform runs.
const BucketRuns = "SEMEQUIP_RUNS"

// RunStatus is the outcome of one transform run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunRejected  RunStatus = "rejected"
	RunRetried   RunStatus = "retried"
)

// Run records one transform of an equipment document.
type Run struct {
	RunID       string    `json:"run_id,omitempty"`
	EquipmentID string    `json:"equipment_id"`
	ClassID     string    `json:"class_id,omitempty"`
	ShapeType   string    `json:"shape_type,omitempty"`
	Status      RunStatus `json:"status"`
	Kind        string    `json:"kind,omitempty"` // error kind for failed runs
	Error       string    `json:"error,omitempty"`
	Triples     int       `json:"triples,omitempty"`
	Skipped     int       `json:"skipped,omitempty"`
	Subject     string    `json:"subject,omitempty"` // where the graph was published
	CreatedAt   time.Time `json:"created_at"`
}

// Bucket is the part of a KV bucket the store uses.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Keys(ctx context.Context) ([]string, error)
}

// kvBucket adapts a jetstream.KeyValue to Bucket.
type kvBucket struct {
	kv jetstream.KeyValue
}

func (b kvBucket) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry.Value(), nil
}

func (b kvBucket) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

func (b kvBucket) Keys(ctx context.Context) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return nil, nil
	}
	return keys, err
}

// Store provides run storage operations.
type Store struct {
	runs Bucket
}

// NewStore opens the runs bucket, creating it if it doesn't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	kv, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}
	return &Store{runs: kvBucket{kv: kv}}, nil
}

// NewStoreWithBucket creates a Store over an existing bucket.
func NewStoreWithBucket(b Bucket) *Store {
	return &Store{runs: b}
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semequip %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 runs per equipment item
	})
}

var validKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// runKey returns the KV key for an equipment ID.
func runKey(equipmentID string) (string, error) {
	if !validKey.MatchString(equipmentID) || strings.HasPrefix(equipmentID, ".") || strings.HasSuffix(equipmentID, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, equipmentID)
	}
	return equipmentID, nil
}

// Record stores run as the latest run of its equipment item.
func (s *Store) Record(ctx context.Context, run *Run) error {
	key, err := runKey(run.EquipmentID)
	if err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := s.runs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

// Latest returns the most recent run for equipmentID.
func (s *Store) Latest(ctx context.Context, equipmentID string) (*Run, error) {
	key, err := runKey(equipmentID)
	if err != nil {
		return nil, err
	}

	data, err := s.runs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var r Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

// List returns the latest run of every equipment item, ordered by
// equipment ID.
func (s *Store) List(ctx context.Context) ([]*Run, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*Run, 0, len(keys))
	for _, key := range keys {
		r, err := s.Latest(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		runs = append(runs, r)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].EquipmentID < runs[j].EquipmentID })
	return runs, nil
}
