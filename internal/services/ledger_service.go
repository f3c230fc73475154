package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"funds/internal/core"
	"funds/internal/log"
	"funds/internal/storage"
)

// Operations reported in change notifications.
const (
	OpAddTransaction    = "add"
	OpRepay             = "repay"
	OpDeleteTransaction = "delete"
	OpAddTarget         = "target_add"
	OpRemoveTarget      = "target_remove"
	OpImport            = "import"
	OpReset             = "reset"
)

// Publisher announces a persisted collection change.
type Publisher interface {
	PublishLedgerChange(ctx context.Context, key string, version int64, operation string) error
}

// LedgerService owns every read-modify-write of the ledger and target
// collections. Mutations are serialized; every derived view is recomputed
// from the persisted collections.
type LedgerService struct {
	mu        sync.Mutex
	store     *storage.Collections
	publisher Publisher

	now   func() time.Time
	newID func() string
}

// NewLedgerService wires a service over store. publisher may be nil.
func NewLedgerService(store *storage.Collections, publisher Publisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		newID:     core.NewTransactionID,
	}
}

// Summary loads both collections and derives the total and target progress.
func (s *LedgerService) Summary(ctx context.Context) (core.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary(ctx)
}

func (s *LedgerService) summary(ctx context.Context) (core.Summary, error) {
	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load targets: %w", err)
	}
	return core.Summarize(txs, targets), nil
}

// AddTransaction validates in, appends the built record and persists the
// ledger.
func (s *LedgerService) AddTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load transactions: %w", err)
	}
	tx := in.Build(s.newID(), s.now())
	txs = append(txs, tx)

	version, err := s.store.SaveTransactions(ctx, txs)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction added",
		"id", tx.ID,
		"amount", tx.Amount.String(),
		"is_loan", tx.IsLoan)

	s.publish(ctx, core.KeyTransactions, version, OpAddTransaction)
	return tx, nil
}

// Repay adds paid to the PaidAmount of the first transaction with id. The
// record must be a loan; overpayment is kept as entered.
func (s *LedgerService) Repay(ctx context.Context, id string, paid core.Money) (core.Summary, error) {
	if !paid.IsPositive() {
		return core.Summary{}, fmt.Errorf("repay %s: %w", id, core.ErrInvalidAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	i := core.IndexOfTransaction(txs, strings.TrimSpace(id))
	if i < 0 {
		return core.Summary{}, fmt.Errorf("repay %s: %w", id, core.ErrNotFound)
	}
	if !txs[i].IsLoan {
		return core.Summary{}, fmt.Errorf("repay %s: %w", id, core.ErrNotLoan)
	}
	txs[i].PaidAmount = txs[i].PaidAmount.Add(paid)

	version, err := s.store.SaveTransactions(ctx, txs)
	if err != nil {
		return core.Summary{}, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Loan repayment recorded",
		"id", txs[i].ID,
		"paid", paid.String(),
		"paid_total", txs[i].PaidAmount.String())

	s.publish(ctx, core.KeyTransactions, version, OpRepay)
	return s.summary(ctx)
}

// DeleteTransaction removes the first transaction with id.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) (core.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("load transactions: %w", err)
	}
	i := core.IndexOfTransaction(txs, strings.TrimSpace(id))
	if i < 0 {
		return core.Summary{}, fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	removed := txs[i]
	txs = append(txs[:i], txs[i+1:]...)

	version, err := s.store.SaveTransactions(ctx, txs)
	if err != nil {
		return core.Summary{}, fmt.Errorf("save transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted",
		"id", removed.ID,
		"contribution", core.Contribution(removed).String())

	s.publish(ctx, core.KeyTransactions, version, OpDeleteTransaction)
	return s.summary(ctx)
}

// AddTarget creates a savings target with a fresh creation-time id.
func (s *LedgerService) AddTarget(ctx context.Context, name string, amount core.Money) (core.Target, error) {
	t := core.Target{Name: strings.TrimSpace(name), Amount: amount}
	if err := t.Validate(); err != nil {
		return core.Target{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		return core.Target{}, fmt.Errorf("load targets: %w", err)
	}
	t.ID = core.NextTargetID(targets, s.now())
	targets = append(targets, t)

	version, err := s.store.SaveTargets(ctx, targets)
	if err != nil {
		return core.Target{}, fmt.Errorf("save targets: %w", err)
	}

	slog.InfoContext(ctx, "Target added", "id", t.ID, "name", t.Name, "amount", t.Amount.String())

	s.publish(ctx, core.KeyTargets, version, OpAddTarget)
	return t, nil
}

func (s *LedgerService) RemoveTarget(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		return fmt.Errorf("load targets: %w", err)
	}
	i := core.IndexOfTarget(targets, id)
	if i < 0 {
		return fmt.Errorf("remove target %d: %w", id, core.ErrNotFound)
	}
	targets = append(targets[:i], targets[i+1:]...)

	version, err := s.store.SaveTargets(ctx, targets)
	if err != nil {
		return fmt.Errorf("save targets: %w", err)
	}

	slog.InfoContext(ctx, "Target removed", "id", id)

	s.publish(ctx, core.KeyTargets, version, OpRemoveTarget)
	return nil
}

// Export returns both collections as stored.
func (s *LedgerService) Export(ctx context.Context) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.LoadTransactions(ctx)
	if err != nil {
		return core.Document{}, fmt.Errorf("load transactions: %w", err)
	}
	targets, err := s.store.LoadTargets(ctx)
	if err != nil {
		return core.Document{}, fmt.Errorf("load targets: %w", err)
	}
	return core.Document{Transactions: txs, Targets: targets}, nil
}

// Import overwrites each collection present in doc. Collections absent from
// the document are left untouched. Records without ids get one.
func (s *LedgerService) Import(ctx context.Context, doc core.ImportedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.HasTransactions {
		txs := append([]core.Transaction(nil), doc.Transactions...)
		core.AssignTransactionIDs(txs, s.newID)
		version, err := s.store.SaveTransactions(ctx, txs)
		if err != nil {
			return fmt.Errorf("import transactions: %w", err)
		}
		s.publish(ctx, core.KeyTransactions, version, OpImport)
	}
	if doc.HasTargets {
		targets := append([]core.Target(nil), doc.Targets...)
		core.AssignTargetIDs(targets, s.now())
		version, err := s.store.SaveTargets(ctx, targets)
		if err != nil {
			return fmt.Errorf("import targets: %w", err)
		}
		s.publish(ctx, core.KeyTargets, version, OpImport)
	}

	slog.InfoContext(ctx, "Data imported",
		"transactions", len(doc.Transactions),
		"targets", len(doc.Targets),
		"has_transactions", doc.HasTransactions,
		"has_targets", doc.HasTargets)

	return nil
}

// Reset removes both collections.
func (s *LedgerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	slog.WarnContext(ctx, "All data reset")

	s.publish(ctx, core.KeyTransactions, 0, OpReset)
	s.publish(ctx, core.KeyTargets, 0, OpReset)
	return nil
}

// publish is best effort: the change is already persisted.
func (s *LedgerService) publish(ctx context.Context, key string, version int64, op string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerChange(ctx, key, version, op); err != nil {
		fields := log.NewFields().WithChange(key, version, op).WithError(err)
		slog.ErrorContext(ctx, "Failed to publish ledger change", fields.ToSlice()...)
	}
}

// Close releases the storage backend and the publisher when it can be closed.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.KV().Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	return errors.Join(errs...)
}
