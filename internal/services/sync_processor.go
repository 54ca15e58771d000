package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"presupuesto/internal/log"
)

// Syncer exports the whole ledger in one pass.
type Syncer interface {
	SyncAll(ctx context.Context) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// Interval between full resyncs (default: 15m)
	Interval time.Duration

	// RunOnStart runs a pass right away instead of waiting one interval
	RunOnStart bool
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		Interval:   15 * time.Minute,
		RunOnStart: true,
	}
}

// SyncProcessor periodically re-exports every month. It backs up the
// message-driven export in case messages were lost while the worker was
// down.
type SyncProcessor struct {
	syncer Syncer
	config SyncProcessorConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	passes  int
}

func NewSyncProcessor(syncer Syncer, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncProcessor{
		syncer: syncer,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.config.Interval <= 0 {
		p.mu.Unlock()
		return fmt.Errorf("invalid sync interval %v", p.config.Interval)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started", "interval", p.config.Interval.String())
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Passes returns the number of completed resyncs.
func (p *SyncProcessor) Passes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passes
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.runOnce(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *SyncProcessor) runOnce(ctx context.Context) {
	if err := p.syncer.SyncAll(ctx); err != nil {
		p.logger.WarnContext(ctx, "Periodic sync finished with errors", log.FieldError, err.Error())
	}
	p.mu.Lock()
	p.passes++
	p.mu.Unlock()
}
