// Package backup mirrors the ledger into timestamped JSON files using the
// import/export document format.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"funds/internal/core"
	ports "funds/internal/sheets"
)

const (
	filePrefix = "funds-backup-"
	fileSuffix = ".json"
	// Sorts lexically in time order.
	stampLayout = "20060102T150405.000Z"
)

type Dir struct {
	mu   sync.Mutex
	dir  string
	keep int
	now  func() time.Time
}

var _ ports.Mirror = (*Dir)(nil)

// New returns a sink writing into dir and keeping the keep newest files.
// keep <= 0 keeps every file.
func New(dir string, keep int) (*Dir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Dir{dir: dir, keep: keep, now: time.Now}, nil
}

func (d *Dir) Name() string { return "backup" }

// Mirror writes doc unless it is identical to the newest backup.
func (d *Dir) Mirror(ctx context.Context, doc core.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	if err := core.EncodeDocument(&buf, doc); err != nil {
		return err
	}

	files, err := d.List()
	if err != nil {
		return err
	}
	if n := len(files); n > 0 {
		latest, err := os.ReadFile(filepath.Join(d.dir, files[n-1]))
		if err == nil && bytes.Equal(latest, buf.Bytes()) {
			slog.DebugContext(ctx, "Backup unchanged, skipping", "file", files[n-1])
			return nil
		}
	}

	name := nextName(d.now(), files)
	if err := writeFileAtomic(filepath.Join(d.dir, name), buf.Bytes()); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	slog.InfoContext(ctx, "Backup written",
		"file", name,
		"transactions", len(doc.Transactions),
		"targets", len(doc.Targets))

	return d.prune(ctx, append(files, name))
}

// nextName stamps now, moved forward a millisecond at a time until it sorts
// after the newest existing backup.
func nextName(now time.Time, files []string) string {
	stamp := now.UTC()
	name := filePrefix + stamp.Format(stampLayout) + fileSuffix
	if n := len(files); n > 0 {
		for name <= files[n-1] {
			stamp = stamp.Add(time.Millisecond)
			name = filePrefix + stamp.Format(stampLayout) + fileSuffix
		}
	}
	return name
}

// List returns backup file names, oldest first.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, filePrefix) && strings.HasSuffix(n, fileSuffix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (d *Dir) prune(ctx context.Context, files []string) error {
	if d.keep <= 0 || len(files) <= d.keep {
		return nil
	}
	for _, name := range files[:len(files)-d.keep] {
		if err := os.Remove(filepath.Join(d.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune backup %s: %w", name, err)
		}
		slog.DebugContext(ctx, "Pruned backup", "file", name)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".backup-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
