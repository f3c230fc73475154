package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"funds/internal/core"
)

var (
	ErrCorrupt  = errors.New("stored collection is corrupt")
	ErrReadOnly = errors.New("collections are read only")
)

// Collections reads and writes the two ledger collections over a KV.
type Collections struct {
	kv       KV
	now      func() time.Time
	newID    func() string
	readOnly bool
}

func NewCollections(kv KV) *Collections {
	return &Collections{kv: kv, now: time.Now, newID: core.NewTransactionID}
}

// NewReadOnlyCollections never writes to kv. Records without ids are returned
// as stored and every save fails with ErrReadOnly.
func NewReadOnlyCollections(kv KV) *Collections {
	c := NewCollections(kv)
	c.readOnly = true
	return c
}

// KV exposes the underlying backend.
func (c *Collections) KV() KV { return c.kv }

// LoadTransactions returns the stored ledger, or an empty one when nothing has
// been saved. Records without an id get one, and the ledger is saved back.
func (c *Collections) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	var txs []core.Transaction
	found, err := c.load(ctx, core.KeyTransactions, &txs)
	if err != nil {
		return nil, err
	}
	if !found {
		return []core.Transaction{}, nil
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	if !c.readOnly && core.AssignTransactionIDs(txs, c.newID) {
		slog.InfoContext(ctx, "Assigned ids to stored transactions", "count", len(txs))
		if _, err := c.SaveTransactions(ctx, txs); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func (c *Collections) SaveTransactions(ctx context.Context, txs []core.Transaction) (int64, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return c.save(ctx, core.KeyTransactions, txs)
}

// LoadTargets mirrors LoadTransactions for targets.
func (c *Collections) LoadTargets(ctx context.Context) ([]core.Target, error) {
	var targets []core.Target
	found, err := c.load(ctx, core.KeyTargets, &targets)
	if err != nil {
		return nil, err
	}
	if !found {
		return []core.Target{}, nil
	}
	if targets == nil {
		targets = []core.Target{}
	}
	if !c.readOnly && core.AssignTargetIDs(targets, c.now()) {
		slog.InfoContext(ctx, "Assigned ids to stored targets", "count", len(targets))
		if _, err := c.SaveTargets(ctx, targets); err != nil {
			return nil, err
		}
	}
	return targets, nil
}

func (c *Collections) SaveTargets(ctx context.Context, targets []core.Target) (int64, error) {
	if targets == nil {
		targets = []core.Target{}
	}
	return c.save(ctx, core.KeyTargets, targets)
}

// Reset removes both collections.
func (c *Collections) Reset(ctx context.Context) error {
	if c.readOnly {
		return ErrReadOnly
	}
	if err := c.kv.Delete(ctx, core.KeyTransactions, core.KeyTargets); err != nil {
		return fmt.Errorf("reset collections: %w", err)
	}
	return nil
}

func (c *Collections) load(ctx context.Context, key string, v any) (bool, error) {
	data, found, err := c.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

func (c *Collections) save(ctx context.Context, key string, v any) (int64, error) {
	if c.readOnly {
		return 0, fmt.Errorf("save %s: %w", key, ErrReadOnly)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}
	version, err := c.kv.Put(ctx, key, data)
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", key, err)
	}
	return version, nil
}
