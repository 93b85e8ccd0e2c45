package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memBucket is an in-memory Bucket.
type memBucket struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemBucket() *memBucket {
	return &memBucket{data: make(map[string][]byte)}
}

func (m *memBucket) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memBucket) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memBucket) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func TestRecordAndLatest(t *testing.T) {
	ctx := context.Background()
	s := NewStoreWithBucket(newMemBucket())

	run := &Run{RunID: "r1", EquipmentID: "12345", ClassID: "X1", Status: RunSucceeded, Triples: 5}
	if err := s.Record(ctx, run); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if run.CreatedAt.IsZero() {
		t.Error("Record should stamp CreatedAt")
	}

	got, err := s.Latest(ctx, "12345")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.RunID != "r1" || got.Status != RunSucceeded || got.Triples != 5 {
		t.Errorf("unexpected run %+v", got)
	}

	// A later run replaces the earlier one.
	later := &Run{RunID: "r2", EquipmentID: "12345", Status: RunRetried, Kind: "retrieval", CreatedAt: time.Unix(100, 0)}
	if err := s.Record(ctx, later); err != nil {
		t.Fatal(err)
	}
	got, err = s.Latest(ctx, "12345")
	if err != nil {
		t.Fatal(err)
	}
	if got.RunID != "r2" || got.Kind != "retrieval" || !got.CreatedAt.Equal(time.Unix(100, 0)) {
		t.Errorf("unexpected latest run %+v", got)
	}
}

func TestLatestNotFound(t *testing.T) {
	s := NewStoreWithBucket(newMemBucket())
	if _, err := s.Latest(context.Background(), "404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRunKeyValidation(t *testing.T) {
	s := NewStoreWithBucket(newMemBucket())
	for _, id := range []string{"", "a b", "x*", ".hidden", "trailing.", "a>b"} {
		if err := s.Record(context.Background(), &Run{EquipmentID: id}); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Record(%q) error = %v, want ErrInvalidKey", id, err)
		}
	}
}

func TestRecordStoreError(t *testing.T) {
	b := newMemBucket()
	b.err = errors.New("bucket unavailable")
	s := NewStoreWithBucket(b)
	if err := s.Record(context.Background(), &Run{EquipmentID: "1"}); err == nil {
		t.Error("expected error when bucket put fails")
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	s := NewStoreWithBucket(b)

	for _, id := range []string{"30", "10", "20"} {
		if err := s.Record(ctx, &Run{EquipmentID: id, Status: RunSucceeded}); err != nil {
			t.Fatal(err)
		}
	}
	b.data["broken"] = []byte("{not json")

	runs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	for i, want := range []string{"10", "20", "30"} {
		if runs[i].EquipmentID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].EquipmentID, want)
		}
	}
}
