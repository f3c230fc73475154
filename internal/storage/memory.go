package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"funds/internal/core"
)

type memoryEntry struct {
	value   []byte
	version int64
}

// MemoryStore is a process-local KV. Values are copied in and out so callers
// cannot alias stored bytes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

var _ KV = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// NewMemoryStoreFromFiles seeds the store from <base>/seed.json when it
// exists. The seed uses the export document format.
func NewMemoryStoreFromFiles(base string) (*MemoryStore, error) {
	s := NewMemoryStore()
	path := filepath.Join(base, "seed.json")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	doc, err := core.DecodeDocument(f)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	if doc.HasTransactions {
		if err := s.seed(core.KeyTransactions, doc.Transactions); err != nil {
			return nil, err
		}
	}
	if doc.HasTargets {
		if err := s.seed(core.KeyTargets, doc.Targets); err != nil {
			return nil, err
		}
	}

	slog.Info("Seeded memory store",
		"path", path,
		"transactions", len(doc.Transactions),
		"targets", len(doc.Targets))

	return s, nil
}

func (s *MemoryStore) seed(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode seed %s: %w", key, err)
	}
	_, err = s.Put(context.Background(), key, data)
	return err
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[key]
	e.value = append([]byte(nil), value...)
	e.version++
	s.entries[key] = e
	return e.version, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
		delete(s.entries, key)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
