// Package ledger owns the month-by-month budget: it seeds new months from
// the previous one, validates every change, repairs stored rates and keeps
// the persisted copy in step with memory.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/export"
	"presupuesto/internal/log"
	"presupuesto/internal/storage"
)

// DefaultStorageKey is the key the ledger is stored under unless
// WithStorageKey says otherwise.
const DefaultStorageKey = "organizadorFinanciero"

// Operations reported to the notifier.
const (
	OpSeed    = "seed"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpDeposit = "deposit"
	OpRepair  = "repair"
	OpReset   = "reset"
)

var (
	ErrEntryNotFound    = errors.New("entry not found")
	ErrKindMismatch     = errors.New("operation not valid for this kind of entry")
	ErrDateOutsideMonth = errors.New("date outside the month")
	ErrReadOnly         = errors.New("ledger opened read-only")
)

// ChangeEvent describes a persisted change to one month.
type ChangeEvent struct {
	Month     core.MonthKey
	Operation string
	Kind      core.Kind
	EntryID   int64
	Version   uint64
	At        time.Time
}

// Notifier is told about every persisted change. Failures are logged and
// never undo the change.
type Notifier interface {
	MonthChanged(ctx context.Context, ev ChangeEvent) error
}

// LoadReport describes what Load found.
type LoadReport struct {
	Months int
	Seeded bool
	Repair RepairReport
}

type Option func(*Manager)

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithClock replaces time.Now for dates and ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithStorageKey(key string) Option {
	return func(m *Manager) { m.key = key }
}

// WithSeedMonth sets the month opened at startup and used for the sample
// data. It defaults to the current month.
func WithSeedMonth(k core.MonthKey) Option {
	return func(m *Manager) { m.seedMonth = k }
}

// ReadOnly makes the manager a reader of a store another process owns.
// Loading never seeds, repairs in place or opens months, and every change
// fails with ErrReadOnly.
func ReadOnly() Option {
	return func(m *Manager) { m.readOnly = true }
}

// Manager is safe for concurrent use. Every operation either applies fully
// or, on a validation error, not at all.
type Manager struct {
	mu        sync.Mutex
	store     storage.Store
	notifier  Notifier
	logger    *log.Logger
	now       func() time.Time
	ids       *IDGenerator
	key       string
	seedMonth core.MonthKey
	readOnly  bool

	months core.Ledger
	// lastRaw is the stored document as last read or written here.
	lastRaw []byte
	active  core.MonthKey
	version uint64
}

func New(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		key:    DefaultStorageKey,
		now:    time.Now,
		months: core.Ledger{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Nop()
	}
	if m.seedMonth.Validate() != nil {
		m.seedMonth = core.MonthKeyOf(m.now())
	}
	m.ids = NewIDGenerator(m.now)
	m.active = m.seedMonth
	return m
}

// Load reads the stored ledger, replacing anything in memory. A missing or
// unreadable value yields the sample month. Stored rates are repaired and
// the seed month is opened. A read-only manager only reads.
func (m *Manager) Load(ctx context.Context) LoadReport {
	m.mu.Lock()
	rep, events := m.loadLocked(ctx)
	m.mu.Unlock()
	m.notify(ctx, events)
	return rep
}

// Reload is Load under the name used by processes that share a store with
// the API server.
func (m *Manager) Reload(ctx context.Context) LoadReport {
	return m.Load(ctx)
}

func (m *Manager) loadLocked(ctx context.Context) (LoadReport, []ChangeEvent) {
	var rep LoadReport
	months, raw := m.read(ctx)
	if months == nil {
		months = core.Ledger{}
	}

	for _, s := range months {
		m.ids.Observe(s.MaxID())
	}
	if m.readOnly {
		Repair(months)
		m.months = months
		m.lastRaw = raw
		m.active = m.seedMonth
		m.version++
		rep.Months = len(months)
		return rep, nil
	}
	if len(months) == 0 {
		months = core.Ledger{m.seedMonth: DefaultSnapshot(m.seedMonth, m.ids.Next)}
		rep.Seeded = true
		m.logger.InfoContext(ctx, "Seeded sample month", log.FieldMonth, m.seedMonth.String(), log.FieldOperation, log.OpSeed)
	}

	rep.Repair = Repair(months)
	if rep.Repair.Changed() {
		m.logger.InfoContext(ctx, "Repaired stored debts",
			log.FieldOperation, log.OpMigrate,
			"rates", rep.Repair.Rates,
			"installments", rep.Repair.Installments)
	}

	m.months = months
	m.lastRaw = raw
	m.active = m.seedMonth
	m.version++
	if rep.Seeded || rep.Repair.Changed() {
		m.persistLocked(ctx)
	}

	var events []ChangeEvent
	if rep.Seeded {
		events = append(events, m.event(m.seedMonth, OpSeed, "", 0))
	} else if rep.Repair.Changed() {
		for _, k := range months.Months() {
			events = append(events, m.event(k, OpRepair, "", 0))
		}
	}
	events = append(events, m.ensureLocked(ctx, m.seedMonth)...)
	rep.Months = len(m.months)
	return rep, events
}

// read returns the stored ledger without invalid months, or nil, along
// with the raw document.
func (m *Manager) read(ctx context.Context) (core.Ledger, []byte) {
	raw, err := m.store.Get(ctx, m.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logger.Failure(ctx, "Reading stored ledger failed", log.OpLoad, err, nil)
		return nil, nil
	}
	return m.decode(ctx, raw), raw
}

// decode parses a stored document, dropping months with invalid keys. A
// corrupt document yields nil.
func (m *Manager) decode(ctx context.Context, raw []byte) core.Ledger {
	var stored core.Ledger
	if err := json.Unmarshal(raw, &stored); err != nil {
		m.logger.WarnContext(ctx, "Stored ledger is corrupt, starting over",
			log.FieldError, err.Error(), log.FieldStorageKey, m.key)
		return nil
	}
	months := core.Ledger{}
	for k, s := range stored {
		if k.Validate() != nil {
			m.logger.WarnContext(ctx, "Dropping stored month with invalid key", log.FieldMonth, string(k))
			continue
		}
		if s == nil {
			s = core.NewSnapshot()
		}
		months[k] = s
	}
	return months
}

// refreshLocked adopts the stored ledger when another process changed it
// since this manager last read or wrote it. Unreadable or empty values keep
// the memory copy.
func (m *Manager) refreshLocked(ctx context.Context) {
	raw, err := m.store.Get(ctx, m.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.WarnContext(ctx, "Re-reading stored ledger failed",
				log.FieldOperation, log.OpLoad,
				log.FieldError, err.Error())
		}
		return
	}
	if bytes.Equal(raw, m.lastRaw) {
		return
	}
	months := m.decode(ctx, raw)
	if len(months) == 0 {
		return
	}
	for _, s := range months {
		m.ids.Observe(s.MaxID())
	}
	Repair(months)
	m.months = months
	m.lastRaw = raw
	m.version++
	m.logger.DebugContext(ctx, "Picked up stored changes",
		log.FieldStorageKey, m.key,
		log.FieldVersion, m.version)
}

// persistLocked writes the whole ledger. Failures are logged and the memory
// copy stays authoritative.
func (m *Manager) persistLocked(ctx context.Context) {
	if m.readOnly {
		return
	}
	b, err := json.Marshal(m.months)
	if err != nil {
		m.logger.Failure(ctx, "Encoding ledger failed", log.OpPersist, err, nil)
		return
	}
	if err := m.store.Put(ctx, m.key, b); err != nil {
		m.logger.WarnContext(ctx, "Persisting ledger failed",
			log.FieldOperation, log.OpPersist,
			log.FieldStorageKey, m.key,
			log.FieldError, err.Error())
		return
	}
	m.lastRaw = b
}

func (m *Manager) event(k core.MonthKey, op string, kind core.Kind, id int64) ChangeEvent {
	return ChangeEvent{Month: k, Operation: op, Kind: kind, EntryID: id, Version: m.version, At: m.now()}
}

func (m *Manager) notify(ctx context.Context, events []ChangeEvent) {
	if m.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := m.notifier.MonthChanged(ctx, ev); err != nil {
			m.logger.WarnContext(ctx, "Change notification failed",
				log.FieldOperation, log.OpNotify,
				log.FieldMonth, ev.Month.String(),
				log.FieldError, err.Error())
		}
	}
}

// ensureLocked creates month k when absent, cloning the previous month or
// starting empty, and persists the result. A read-only manager creates
// nothing.
func (m *Manager) ensureLocked(ctx context.Context, k core.MonthKey) []ChangeEvent {
	if _, ok := m.months[k]; ok || m.readOnly {
		return nil
	}
	if prev, ok := m.months[k.Prev()]; ok {
		m.months[k] = cloneForward(prev, k, m.ids.Next)
	} else {
		m.months[k] = core.NewSnapshot()
	}
	m.version++
	m.persistLocked(ctx)
	m.logger.InfoContext(ctx, "Month created", log.FieldMonth, k.String(), log.FieldOperation, log.OpSeed)
	return []ChangeEvent{m.event(k, OpSeed, "", 0)}
}

// apply runs fn against month k under the lock, on top of whatever other
// processes stored meanwhile. When fn succeeds the ledger is persisted and
// listeners are told.
func (m *Manager) apply(ctx context.Context, k core.MonthKey, op string, kind core.Kind, fn func(s *core.Snapshot) (int64, error)) error {
	if err := k.Validate(); err != nil {
		return err
	}
	if m.readOnly {
		return ErrReadOnly
	}
	m.mu.Lock()
	m.refreshLocked(ctx)
	events := m.ensureLocked(ctx, k)
	id, err := fn(m.months[k])
	if err == nil {
		m.version++
		m.persistLocked(ctx)
		events = append(events, m.event(k, op, kind, id))
		m.logger.DebugContext(ctx, "Ledger changed", log.NewFields().
			WithEntry(k.String(), string(kind), id).
			WithOperation(op).ToSlice()...)
	}
	m.mu.Unlock()
	m.notify(ctx, events)
	return err
}

// EnsureMonth creates month k if needed and reports whether it did.
func (m *Manager) EnsureMonth(ctx context.Context, k core.MonthKey) (bool, error) {
	if err := k.Validate(); err != nil {
		return false, err
	}
	if m.readOnly {
		return false, ErrReadOnly
	}
	m.mu.Lock()
	m.refreshLocked(ctx)
	events := m.ensureLocked(ctx, k)
	m.mu.Unlock()
	m.notify(ctx, events)
	return len(events) > 0, nil
}

// Navigate makes k the active month and returns a copy of it.
func (m *Manager) Navigate(ctx context.Context, k core.MonthKey) (*core.Snapshot, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.refreshLocked(ctx)
	events := m.ensureLocked(ctx, k)
	m.active = k
	s := m.months[k].Clone()
	m.mu.Unlock()
	m.notify(ctx, events)
	return s, nil
}

// Active returns the month currently shown.
func (m *Manager) Active() core.MonthKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SeedMonth returns the month opened at startup.
func (m *Manager) SeedMonth() core.MonthKey {
	return m.seedMonth
}

// Month returns a copy of month k, creating it first if needed. A
// read-only manager returns an empty month instead.
func (m *Manager) Month(ctx context.Context, k core.MonthKey) (*core.Snapshot, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.refreshLocked(ctx)
	events := m.ensureLocked(ctx, k)
	s := m.months[k].Clone()
	m.mu.Unlock()
	m.notify(ctx, events)
	return s, nil
}

// Months returns the stored months in order.
func (m *Manager) Months() []core.MonthKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.months.Months()
}

// Ledger returns a deep copy of every month.
func (m *Manager) Ledger() core.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.months.Clone()
}

// Version increases with every change, including loads.
func (m *Manager) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *Manager) AddMovement(ctx context.Context, k core.MonthKey, kind core.Kind, in MovementInput) (core.Movement, error) {
	if !kind.IsMovement() {
		return core.Movement{}, fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	var out core.Movement
	err := m.apply(ctx, k, OpCreate, kind, func(s *core.Snapshot) (int64, error) {
		mv, err := in.build(k, core.Movement{Date: k.FirstDay()})
		if err != nil {
			return 0, err
		}
		mv.ID = m.ids.Next()
		list := s.Movements(kind)
		*list = append(*list, mv)
		out = mv
		return mv.ID, nil
	})
	return out, err
}

func (m *Manager) UpdateMovement(ctx context.Context, k core.MonthKey, kind core.Kind, id int64, in MovementInput) (core.Movement, error) {
	if !kind.IsMovement() {
		return core.Movement{}, fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	var out core.Movement
	err := m.apply(ctx, k, OpUpdate, kind, func(s *core.Snapshot) (int64, error) {
		list := *s.Movements(kind)
		for i := range list {
			if list[i].ID != id {
				continue
			}
			mv, err := in.build(k, list[i])
			if err != nil {
				return 0, err
			}
			list[i] = mv
			out = mv
			return id, nil
		}
		return 0, ErrEntryNotFound
	})
	return out, err
}

func (m *Manager) AddDebt(ctx context.Context, k core.MonthKey, kind core.Kind, in DebtInput) (core.Debt, error) {
	if !kind.IsDebt() {
		return core.Debt{}, fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	var out core.Debt
	err := m.apply(ctx, k, OpCreate, kind, func(s *core.Snapshot) (int64, error) {
		d, err := in.build(core.Debt{Date: k.FirstDay()})
		if err != nil {
			return 0, err
		}
		d.ID = m.ids.Next()
		list := s.Debts(kind)
		*list = append(*list, d)
		out = d
		return d.ID, nil
	})
	return out, err
}

func (m *Manager) UpdateDebt(ctx context.Context, k core.MonthKey, kind core.Kind, id int64, in DebtInput) (core.Debt, error) {
	if !kind.IsDebt() {
		return core.Debt{}, fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	var out core.Debt
	err := m.apply(ctx, k, OpUpdate, kind, func(s *core.Snapshot) (int64, error) {
		list := *s.Debts(kind)
		for i := range list {
			if list[i].ID != id {
				continue
			}
			d, err := in.build(list[i])
			if err != nil {
				return 0, err
			}
			list[i] = d
			out = d
			return id, nil
		}
		return 0, ErrEntryNotFound
	})
	return out, err
}

// AddGoal creates a savings goal. The current amount may not exceed the
// target at creation.
func (m *Manager) AddGoal(ctx context.Context, k core.MonthKey, in GoalInput) (core.SavingsGoal, error) {
	var out core.SavingsGoal
	err := m.apply(ctx, k, OpCreate, core.KindGoals, func(s *core.Snapshot) (int64, error) {
		g, err := in.build(k, core.SavingsGoal{Date: k.FirstDay()})
		if err != nil {
			return 0, err
		}
		if g.Current > g.Target {
			return 0, core.ErrCurrentExceedsTarget
		}
		g.ID = m.ids.Next()
		s.Goals = append(s.Goals, g)
		out = g
		return g.ID, nil
	})
	return out, err
}

// UpdateGoal edits a goal. Unlike creation, the current amount may end up
// above the target.
func (m *Manager) UpdateGoal(ctx context.Context, k core.MonthKey, id int64, in GoalInput) (core.SavingsGoal, error) {
	var out core.SavingsGoal
	err := m.apply(ctx, k, OpUpdate, core.KindGoals, func(s *core.Snapshot) (int64, error) {
		for i := range s.Goals {
			if s.Goals[i].ID != id {
				continue
			}
			g, err := in.build(k, s.Goals[i])
			if err != nil {
				return 0, err
			}
			s.Goals[i] = g
			out = g
			return id, nil
		}
		return 0, ErrEntryNotFound
	})
	return out, err
}

// Deposit adds a positive amount to a goal.
func (m *Manager) Deposit(ctx context.Context, k core.MonthKey, id int64, raw string) (core.SavingsGoal, error) {
	amount := core.ParseAmount(raw)
	if amount <= 0 {
		return core.SavingsGoal{}, core.ErrInvalidAmount
	}
	var out core.SavingsGoal
	err := m.apply(ctx, k, OpDeposit, core.KindGoals, func(s *core.Snapshot) (int64, error) {
		for i := range s.Goals {
			if s.Goals[i].ID == id {
				s.Goals[i].Current += amount
				out = s.Goals[i]
				return id, nil
			}
		}
		return 0, ErrEntryNotFound
	})
	return out, err
}

// Delete removes exactly one entry from list kind of month k.
func (m *Manager) Delete(ctx context.Context, k core.MonthKey, kind core.Kind, id int64) error {
	if _, err := core.ParseKind(string(kind)); err != nil {
		return err
	}
	return m.apply(ctx, k, OpDelete, kind, func(s *core.Snapshot) (int64, error) {
		if !s.Remove(kind, id) {
			return 0, ErrEntryNotFound
		}
		return id, nil
	})
}

// Summary totals month k.
func (m *Manager) Summary(ctx context.Context, k core.MonthKey) (core.MonthSummary, error) {
	s, err := m.Month(ctx, k)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(k, s), nil
}

// History summarizes every stored month without creating any.
func (m *Manager) History() []core.HistoryRow {
	return core.BuildHistory(m.Ledger())
}

func (m *Manager) Tips(ctx context.Context, k core.MonthKey) ([]core.Tip, error) {
	sum, err := m.Summary(ctx, k)
	if err != nil {
		return nil, err
	}
	return core.Tips(sum), nil
}

// Schedule returns the amortization table of a debt, starting at the month
// it is recorded in.
func (m *Manager) Schedule(ctx context.Context, k core.MonthKey, kind core.Kind, id int64) ([]core.ScheduleRow, error) {
	if !kind.IsDebt() {
		return nil, fmt.Errorf("%w: %s", ErrKindMismatch, kind)
	}
	s, err := m.Month(ctx, k)
	if err != nil {
		return nil, err
	}
	for _, d := range *s.Debts(kind) {
		if d.ID == id {
			// Paid installments are already behind us.
			start := k.Add(-min(d.Paid, d.Installments))
			return core.Schedule(d.Principal, d.MonthlyRate, d.Installments, start), nil
		}
	}
	return nil, ErrEntryNotFound
}

// Export returns the full backup document.
func (m *Manager) Export() export.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return export.NewDocument(m.months.Clone(), m.active, m.now())
}

// Reset deletes the stored ledger and starts again from the sample month.
// A read-only manager leaves everything alone.
func (m *Manager) Reset(ctx context.Context) {
	if m.readOnly {
		m.logger.WarnContext(ctx, "Reset ignored on read-only ledger", log.FieldOperation, log.OpReset)
		return
	}
	m.mu.Lock()
	if err := m.store.Delete(ctx, m.key); err != nil {
		m.logger.WarnContext(ctx, "Deleting stored ledger failed", log.FieldOperation, log.OpReset, log.FieldError, err.Error())
	}
	m.months = core.Ledger{m.seedMonth: DefaultSnapshot(m.seedMonth, m.ids.Next)}
	m.active = m.seedMonth
	m.version++
	m.persistLocked(ctx)
	events := []ChangeEvent{m.event(m.seedMonth, OpReset, "", 0)}
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "Ledger reset", log.FieldOperation, log.OpReset)
	m.notify(ctx, events)
}
