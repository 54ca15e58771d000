package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
	"presupuesto/internal/log"
)

// MonthEnsurer is the part of the ledger manager rollover needs.
type MonthEnsurer interface {
	Reload(ctx context.Context) ledger.LoadReport
	Months() []core.MonthKey
	EnsureMonth(ctx context.Context, k core.MonthKey) (bool, error)
}

// RolloverProcessor opens the current month ahead of the first visit, so
// fixed expenses, debts and goals carry over even when nobody navigates.
type RolloverProcessor struct {
	ledger MonthEnsurer
	now    func() time.Time
	logger *log.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewRolloverProcessor(l MonthEnsurer, now func() time.Time, logger *log.Logger) *RolloverProcessor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &RolloverProcessor{
		ledger: l,
		now:    now,
		logger: logger.WithComponent(log.ComponentRollover),
	}
}

// ProcessDue creates every month from the latest stored one up to the
// month of now, each cloned from its predecessor. It returns how many
// months were created.
func (p *RolloverProcessor) ProcessDue(ctx context.Context) (int, error) {
	if p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	p.ledger.Reload(ctx)

	current := core.MonthKeyOf(p.now())
	months := p.ledger.Months()
	start := current
	if n := len(months); n > 0 && months[n-1] < current {
		start = months[n-1].Next()
	}

	created := 0
	for k := start; k <= current; k = k.Next() {
		ok, err := p.ledger.EnsureMonth(ctx, k)
		if err != nil {
			return created, fmt.Errorf("ensure month %s: %w", k, err)
		}
		if ok {
			created++
			p.logger.InfoContext(ctx, "Rolled month over", log.FieldMonth, k.String(), log.FieldOperation, log.OpRollover)
		}
	}

	p.logger.InfoContext(ctx, "Rollover complete",
		log.FieldMonth, current.String(),
		log.FieldCount, created)
	return created, nil
}

// Schedule runs ProcessDue on a standard five-field cron spec until Stop.
func (p *RolloverProcessor) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := p.ProcessDue(ctx); err != nil {
			p.logger.Failure(ctx, "Scheduled rollover failed", log.OpRollover, err, nil)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid rollover schedule %q: %w", spec, err)
	}

	p.mu.Lock()
	if p.cron != nil {
		p.mu.Unlock()
		return fmt.Errorf("rollover already scheduled")
	}
	p.cron = c
	p.mu.Unlock()

	c.Start()
	next := c.Entries()[0].Next
	p.logger.InfoContext(ctx, "Rollover scheduled", "schedule", spec, "next_run", next.Format(time.RFC3339))
	return nil
}

// Stop halts the schedule and waits for a running job.
func (p *RolloverProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
