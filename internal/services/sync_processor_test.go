package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (s *countingSyncer) SyncAll(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.Interval != 15*time.Minute {
		t.Errorf("expected Interval 15m, got %v", config.Interval)
	}
	if !config.RunOnStart {
		t.Error("expected RunOnStart by default")
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, DefaultSyncProcessorConfig(), nil)

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartTwice(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, DefaultSyncProcessorConfig(), nil)

	processor.mu.Lock()
	processor.running = true
	processor.mu.Unlock()

	if err := processor.Start(context.Background()); err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestSyncProcessor_InvalidInterval(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, SyncProcessorConfig{}, nil)
	if err := processor.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, DefaultSyncProcessorConfig(), nil)

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_RunsPeriodically(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("one month failed")}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{Interval: 20 * time.Millisecond, RunOnStart: true}, nil)

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for syncer.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if syncer.calls.Load() < 3 {
		t.Errorf("expected at least 3 passes, got %d", syncer.calls.Load())
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
	if processor.Passes() != int(syncer.calls.Load()) {
		t.Errorf("Passes() = %d, calls = %d", processor.Passes(), syncer.calls.Load())
	}
}
