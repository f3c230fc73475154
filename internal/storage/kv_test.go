package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileStore(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "db", "funds.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]KV{
		"memory": NewMemoryStore(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestKV_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, found, err := kv.Get(ctx, "transactions"); err != nil || found {
				t.Fatalf("expected missing key, found=%v err=%v", found, err)
			}

			v1, err := kv.Put(ctx, "transactions", []byte(`[1]`))
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			v2, err := kv.Put(ctx, "transactions", []byte(`[1,2]`))
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if v2 <= v1 {
				t.Errorf("version did not increase: %d then %d", v1, v2)
			}

			got, found, err := kv.Get(ctx, "transactions")
			if err != nil || !found || string(got) != `[1,2]` {
				t.Fatalf("get = %q found=%v err=%v", got, found, err)
			}

			if _, err := kv.Put(ctx, "targets", []byte(`[]`)); err != nil {
				t.Fatalf("put targets: %v", err)
			}
			if err := kv.Delete(ctx, "transactions", "targets", "absent"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			for _, key := range []string{"transactions", "targets"} {
				if _, found, _ := kv.Get(ctx, key); found {
					t.Errorf("%s still present after delete", key)
				}
			}
		})
	}
}

func TestKV_InvalidKey(t *testing.T) {
	ctx := context.Background()
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../etc", "a/b", " pad", "x.json"} {
				if _, err := kv.Put(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Put(%q) err = %v, want ErrInvalidKey", key, err)
				}
			}
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	if _, err := s.Put(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z'
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "funds.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "targets", []byte(`[{"id":1}]`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "targets", []byte(`[{"id":2}]`)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, found, err := s.Get(ctx, "targets")
	if err != nil || !found || string(got) != `[{"id":2}]` {
		t.Fatalf("get after reopen = %q found=%v err=%v", got, found, err)
	}
	v, err := s.Version(ctx, "targets")
	if err != nil || v != 2 {
		t.Fatalf("version = %d err=%v, want 2", v, err)
	}
}
