package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"funds/internal/amqp"
	"funds/internal/core"
	"funds/internal/sheets"
)

// Source yields the current stored collections.
type Source interface {
	Export(ctx context.Context) (core.Document, error)
}

// ChangeConsumer delivers ledger change notifications until ctx is done.
type ChangeConsumer interface {
	ConsumeLedgerChanges(ctx context.Context, handler func(context.Context, *amqp.LedgerChangeMessage) error) error
}

// MirrorWorker copies the ledger into every sink whenever it changes, and on
// a fixed interval to catch notifications that were never delivered.
type MirrorWorker struct {
	source   Source
	sinks    []sheets.Mirror
	interval time.Duration

	mu sync.Mutex // one mirror pass at a time
}

func NewMirrorWorker(source Source, sinks []sheets.Mirror, interval time.Duration) *MirrorWorker {
	return &MirrorWorker{source: source, sinks: sinks, interval: interval}
}

// HandleChange mirrors the full current state. The message only says that
// something changed; its version is logged for tracing.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"key", msg.Key,
		"version", msg.Version,
		"operation", msg.Operation)

	if err := w.MirrorAll(ctx); err != nil {
		return fmt.Errorf("mirror after %s on %s: %w", msg.Operation, msg.Key, err)
	}
	return nil
}

// MirrorAll exports once and hands the document to every sink. A failing
// sink does not stop the others; all failures are returned together.
func (w *MirrorWorker) MirrorAll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	doc, err := w.source.Export(ctx)
	if err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}

	var errs []error
	for _, sink := range w.sinks {
		start := time.Now()
		if err := sink.Mirror(ctx, doc); err != nil {
			slog.ErrorContext(ctx, "Mirror failed", "sink", sink.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		slog.DebugContext(ctx, "Mirror completed", "sink", sink.Name(), "duration", time.Since(start))
	}
	return errors.Join(errs...)
}

// RunPeriodic mirrors immediately, then on every tick until ctx is done.
// Failures are logged and retried on the next tick.
func (w *MirrorWorker) RunPeriodic(ctx context.Context) error {
	if w.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.MirrorAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup mirror failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.MirrorAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic mirror failed", "error", err)
			}
		}
	}
}

// Run consumes change notifications and runs the periodic mirror side by
// side. It returns when ctx is cancelled or either loop fails.
func (w *MirrorWorker) Run(ctx context.Context, consumer ChangeConsumer) error {
	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanges(gctx, w.HandleChange)
		})
	}
	g.Go(func() error {
		return w.RunPeriodic(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
