package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"presupuesto/internal/amqp"
	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
	"presupuesto/internal/sheets"
)

// LedgerSource is the part of the ledger manager the worker reads.
type LedgerSource interface {
	Reload(ctx context.Context) ledger.LoadReport
	Ledger() core.Ledger
}

// SyncWorker mirrors ledger months into a spreadsheet.
type SyncWorker struct {
	source      LedgerSource
	exporter    sheets.MonthExporter
	concurrency int
	logger      *log.Logger
}

func NewSyncWorker(source LedgerSource, exporter sheets.MonthExporter, concurrency int, logger *log.Logger) *SyncWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncWorker{
		source:      source,
		exporter:    exporter,
		concurrency: concurrency,
		logger:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMonthChanged re-reads storage and exports the month named in msg.
// A month that no longer exists, after a reset for instance, is skipped.
func (w *SyncWorker) HandleMonthChanged(ctx context.Context, msg *amqp.MonthChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing month changed message",
		log.FieldMonth, msg.Month.String(),
		log.FieldOperation, msg.Operation,
		log.FieldVersion, msg.Version)

	w.source.Reload(ctx)
	s, ok := w.source.Ledger()[msg.Month]
	if !ok {
		w.logger.WarnContext(ctx, "Month not in storage, skipping export", log.FieldMonth, msg.Month.String())
		return nil
	}

	if err := w.exporter.ExportMonth(ctx, msg.Month, s); err != nil {
		return fmt.Errorf("export month %s: %w", msg.Month, err)
	}
	return nil
}

// SyncAll exports every stored month, at most concurrency at a time. It
// keeps going past failures and reports them together.
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	w.source.Reload(ctx)
	months := w.source.Ledger()
	if len(months) == 0 {
		w.logger.InfoContext(ctx, "No months to sync")
		return nil
	}

	var (
		failed atomic.Int64
		errs   = make([]error, len(months))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, k := range months.Months() {
		s := months[k]
		g.Go(func() error {
			if err := w.exporter.ExportMonth(gctx, k, s); err != nil {
				failed.Add(1)
				errs[i] = fmt.Errorf("export month %s: %w", k, err)
				w.logger.Failure(gctx, "Month export failed", log.OpSync, err,
					log.NewFields().WithEntry(k.String(), "", 0))
			}
			return nil
		})
	}
	g.Wait()

	w.logger.InfoContext(ctx, "Full sync completed",
		"total", len(months),
		"errors", failed.Load())
	return errors.Join(errs...)
}
