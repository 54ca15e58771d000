package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presupuesto/internal/core"
	"presupuesto/internal/ledger"
	"presupuesto/internal/storage/memory"
)

func clockAt(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 0, 5, 0, 0, time.UTC) }
}

func TestRolloverCatchesUpMissedMonths(t *testing.T) {
	store := memory.New()
	seed := ledger.New(store, ledger.WithSeedMonth("2025-08"), ledger.WithClock(clockAt(2025, time.August, 15)))
	seed.Load(context.Background())

	// The worker process runs its own manager over the same store.
	m := ledger.New(store, ledger.WithSeedMonth("2025-08"), ledger.WithClock(clockAt(2025, time.November, 1)))
	p := NewRolloverProcessor(m, clockAt(2025, time.November, 1), nil)

	created, err := p.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, created)
	assert.Equal(t, []core.MonthKey{"2025-08", "2025-09", "2025-10", "2025-11"}, m.Months())

	nov, err := m.Month(context.Background(), "2025-11")
	require.NoError(t, err)
	assert.Len(t, nov.Fixed, 1)
	assert.Equal(t, "2025-11-01", nov.Fixed[0].Date.String())

	// A second run in the same month does nothing.
	created, err = p.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)

	// The other process sees the new months after reloading.
	seed.Reload(context.Background())
	assert.Contains(t, seed.Months(), core.MonthKey("2025-11"))
}

func TestRolloverWhenLatestMonthIsAhead(t *testing.T) {
	m := ledger.New(memory.New(), ledger.WithSeedMonth("2026-01"), ledger.WithClock(clockAt(2025, time.December, 1)))
	p := NewRolloverProcessor(m, clockAt(2025, time.December, 1), nil)

	created, err := p.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Contains(t, m.Months(), core.MonthKey("2025-12"))
}

func TestRolloverSchedule(t *testing.T) {
	p := NewRolloverProcessor(ledger.New(memory.New()), nil, nil)
	ctx := context.Background()

	assert.Error(t, p.Schedule(ctx, "not a schedule"))
	require.NoError(t, p.Schedule(ctx, "5 0 1 * *"))
	assert.Error(t, p.Schedule(ctx, "5 0 1 * *"), "second schedule should be rejected")
	assert.NoError(t, p.Stop(ctx))
	assert.NoError(t, p.Stop(ctx))
}

func TestRolloverUninitialized(t *testing.T) {
	p := &RolloverProcessor{}
	_, err := p.ProcessDue(context.Background())
	assert.Error(t, err)
}
