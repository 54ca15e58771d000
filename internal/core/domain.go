package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	KindIncome    Kind = "ingresos"
	KindFixed     Kind = "gastosFijos"
	KindCards     Kind = "tarjetas"
	KindLoans     Kind = "creditos"
	KindPurchases Kind = "gastosCompras"
	KindGoals     Kind = "ahorros"

	monthLayout = "2006-01"
	dateLayout  = "2006-01-02"
)

// Kinds lists every ledger list in display order.
var Kinds = []Kind{KindIncome, KindFixed, KindCards, KindLoans, KindPurchases, KindGoals}

type (
	// Kind names one of the six lists of a month snapshot.
	Kind string

	// MonthKey identifies a month as "YYYY-MM". Keys order lexicographically.
	MonthKey string

	Date struct {
		time.Time
	}

	// Money is a whole amount of Colombian pesos.
	Money int64

	// Movement is a flat income, fixed expense or purchase record.
	Movement struct {
		ID       int64  `json:"id"`
		Name     string `json:"nombre"`
		Amount   Money  `json:"monto"`
		Category string `json:"categoria"`
		Date     Date   `json:"fecha"`
	}

	// Debt covers credit cards and loans. Installment is derived from
	// Principal, MonthlyRate and Installments and only Recompute writes it.
	Debt struct {
		ID           int64   `json:"id"`
		Name         string  `json:"nombre"`
		Principal    Money   `json:"montoTotal"`
		Installments int     `json:"numeroCuotas"`
		Paid         int     `json:"cuotasPagadas"`
		MonthlyRate  float64 `json:"tasaMensual"`
		Installment  Money   `json:"cuotaMensual"`
		Date         Date    `json:"fecha"`
	}

	SavingsGoal struct {
		ID      int64  `json:"id"`
		Name    string `json:"nombre"`
		Target  Money  `json:"meta"`
		Current Money  `json:"actual"`
		Date    Date   `json:"fecha"`
	}

	// Snapshot holds the six lists recorded for one month.
	Snapshot struct {
		Income    []Movement    `json:"ingresos"`
		Fixed     []Movement    `json:"gastosFijos"`
		Cards     []Debt        `json:"tarjetas"`
		Loans     []Debt        `json:"creditos"`
		Purchases []Movement    `json:"gastosCompras"`
		Goals     []SavingsGoal `json:"ahorros"`
	}

	// Ledger maps every stored month to its snapshot.
	Ledger map[MonthKey]*Snapshot

	// Entry is the behaviour shared by every record kind.
	Entry interface {
		EntryID() int64
		// Contribution is what the entry adds to its list total.
		Contribution() Money
	}
)

var (
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidTerm          = errors.New("invalid number of installments")
	ErrInvalidPaid          = errors.New("paid installments out of range")
	ErrInvalidRate          = errors.New("invalid monthly rate")
	ErrEmptyName            = errors.New("empty name")
	ErrNameTooLong          = errors.New("name too long (max 200 characters)")
	ErrCurrentExceedsTarget = errors.New("current amount exceeds goal")
	ErrUnknownKind          = errors.New("unknown entry kind")
)

// ParseKind accepts the stored list name of a kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) IsMovement() bool {
	return k == KindIncome || k == KindFixed || k == KindPurchases
}

func (k Kind) IsDebt() bool {
	return k == KindCards || k == KindLoans
}

func (k Kind) IsGoal() bool {
	return k == KindGoals
}

// Label returns the Spanish heading used in reports.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Ingresos"
	case KindFixed:
		return "Gastos fijos"
	case KindCards:
		return "Tarjetas"
	case KindLoans:
		return "Créditos"
	case KindPurchases:
		return "Compras"
	case KindGoals:
		return "Ahorros"
	}
	return string(k)
}

// NewMonthKey builds a key from a year and a 1-based month.
func NewMonthKey(year, month int) MonthKey {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return MonthKey(t.Format(monthLayout))
}

// MonthKeyOf returns the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return NewMonthKey(t.Year(), int(t.Month()))
}

// ParseMonthKey validates s as "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKeyOf(t), nil
}

// Validate accepts only the canonical "YYYY-MM" form. ParseMonthKey is the
// lenient entry point for user input.
func (k MonthKey) Validate() error {
	parsed, err := ParseMonthKey(string(k))
	if err != nil {
		return err
	}
	if parsed != k {
		return fmt.Errorf("%w: %q is not in YYYY-MM form", ErrInvalidMonth, string(k))
	}
	return nil
}

func (k MonthKey) String() string {
	return string(k)
}

func (k MonthKey) time() time.Time {
	t, err := time.Parse(monthLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Year returns the calendar year of the key, 0 when the key is malformed.
func (k MonthKey) Year() int {
	t := k.time()
	if t.IsZero() {
		return 0
	}
	return t.Year()
}

// Month returns the 1-based month, 0 when the key is malformed.
func (k MonthKey) Month() int {
	t := k.time()
	if t.IsZero() {
		return 0
	}
	return int(t.Month())
}

// Prev returns the preceding calendar month. January rolls back to December
// of the previous year.
func (k MonthKey) Prev() MonthKey {
	return k.Add(-1)
}

func (k MonthKey) Next() MonthKey {
	return k.Add(1)
}

// Add moves the key by n months.
func (k MonthKey) Add(n int) MonthKey {
	y, m := k.Year(), k.Month()
	if m == 0 {
		return k
	}
	return NewMonthKey(y, m+n)
}

// FirstDay is the date every seeded entry of the month is tagged with.
func (k MonthKey) FirstDay() Date {
	return NewDate(k.Year(), k.Month(), 1)
}

// Contains reports whether d falls inside the month.
func (k MonthKey) Contains(d Date) bool {
	return !d.IsZero() && MonthKeyOf(d.Time) == k
}

// MonthRange returns n consecutive keys starting at start.
func MonthRange(start MonthKey, n int) []MonthKey {
	if n <= 0 || start.Validate() != nil {
		return nil
	}
	out := make([]MonthKey, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.Add(i))
	}
	return out
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "YYYY-MM-DD". An empty string yields the zero date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// Older data may carry a full timestamp.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	// An unreadable stored date is dropped rather than failing the whole load.
	parsed, err := ParseDate(s)
	if err != nil {
		parsed = Date{}
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts integers, fractional numbers (rounded) and numeric
// strings, since older stored data is not consistent about amounts.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*m = ParseAmount(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	*m = RoundMoney(f)
	return nil
}

// RoundMoney rounds half away from zero to whole pesos; non-finite input is 0.
func RoundMoney(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Money(math.Round(f))
}

func (m Money) Validate() error {
	if m <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (mv Movement) EntryID() int64 { return mv.ID }

func (mv Movement) Contribution() Money { return mv.Amount }

func (d Debt) EntryID() int64 { return d.ID }

func (d Debt) Contribution() Money { return d.Installment }

func (g SavingsGoal) EntryID() int64 { return g.ID }

func (g SavingsGoal) Contribution() Money { return g.Current }

func (mv Movement) Validate() error {
	if strings.TrimSpace(mv.Name) == "" {
		return ErrEmptyName
	}
	if len(mv.Name) > 200 {
		return ErrNameTooLong
	}
	return mv.Amount.Validate()
}

// Validate checks the user-authored fields of a debt.
func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if err := d.Principal.Validate(); err != nil {
		return err
	}
	if d.Installments <= 0 {
		return ErrInvalidTerm
	}
	if d.Paid < 0 || d.Paid > d.Installments {
		return ErrInvalidPaid
	}
	if !(d.MonthlyRate > 0 && d.MonthlyRate <= MaxMonthlyRate) {
		return ErrInvalidRate
	}
	return nil
}

// Recompute refreshes the cached installment from the debt terms.
func (d *Debt) Recompute() {
	d.Installment = Installment(d.Principal, d.MonthlyRate, d.Installments)
}

// Verify reports whether the cached installment matches the engine output.
func (d Debt) Verify() bool {
	return d.Installment == Installment(d.Principal, d.MonthlyRate, d.Installments)
}

func (d Debt) TotalInterest() Money {
	return TotalInterest(d.Principal, d.MonthlyRate, d.Installments)
}

func (d Debt) RemainingPrincipal() Money {
	return RemainingPrincipal(d.Principal, d.Installments, d.Paid)
}

func (d Debt) RemainingInstallments() int {
	if d.Paid >= d.Installments {
		return 0
	}
	return d.Installments - d.Paid
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Progress is the percentage of the goal reached, capped at 100.
func (g SavingsGoal) Progress() float64 {
	if g.Target <= 0 {
		return 0
	}
	return math.Min(100, float64(g.Current)/float64(g.Target)*100)
}

// NewSnapshot returns a month with six empty lists.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.normalize()
	return s
}

// normalize replaces nil lists so they serialize as [].
func (s *Snapshot) normalize() {
	if s.Income == nil {
		s.Income = []Movement{}
	}
	if s.Fixed == nil {
		s.Fixed = []Movement{}
	}
	if s.Cards == nil {
		s.Cards = []Debt{}
	}
	if s.Loans == nil {
		s.Loans = []Debt{}
	}
	if s.Purchases == nil {
		s.Purchases = []Movement{}
	}
	if s.Goals == nil {
		s.Goals = []SavingsGoal{}
	}
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	type plain Snapshot
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Snapshot(p)
	s.normalize()
	return nil
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return NewSnapshot()
	}
	c := &Snapshot{
		Income:    append([]Movement(nil), s.Income...),
		Fixed:     append([]Movement(nil), s.Fixed...),
		Cards:     append([]Debt(nil), s.Cards...),
		Loans:     append([]Debt(nil), s.Loans...),
		Purchases: append([]Movement(nil), s.Purchases...),
		Goals:     append([]SavingsGoal(nil), s.Goals...),
	}
	c.normalize()
	return c
}

// Movements returns a pointer to the movement list of kind k, nil otherwise.
func (s *Snapshot) Movements(k Kind) *[]Movement {
	switch k {
	case KindIncome:
		return &s.Income
	case KindFixed:
		return &s.Fixed
	case KindPurchases:
		return &s.Purchases
	}
	return nil
}

// Debts returns a pointer to the debt list of kind k, nil otherwise.
func (s *Snapshot) Debts(k Kind) *[]Debt {
	switch k {
	case KindCards:
		return &s.Cards
	case KindLoans:
		return &s.Loans
	}
	return nil
}

// Entries exposes list k through the Entry interface.
func (s *Snapshot) Entries(k Kind) []Entry {
	var out []Entry
	switch {
	case k.IsMovement():
		for _, e := range *s.Movements(k) {
			out = append(out, e)
		}
	case k.IsDebt():
		for _, e := range *s.Debts(k) {
			out = append(out, e)
		}
	case k.IsGoal():
		for _, e := range s.Goals {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries in list k.
func (s *Snapshot) Len(k Kind) int {
	return len(s.Entries(k))
}

// Total sums the contribution of every entry in list k.
func (s *Snapshot) Total(k Kind) Money {
	var sum Money
	for _, e := range s.Entries(k) {
		sum += e.Contribution()
	}
	return sum
}

// Has reports whether list k contains id.
func (s *Snapshot) Has(k Kind, id int64) bool {
	for _, e := range s.Entries(k) {
		if e.EntryID() == id {
			return true
		}
	}
	return false
}

// Remove deletes the entry with id from list k and reports whether it existed.
func (s *Snapshot) Remove(k Kind, id int64) bool {
	switch {
	case k.IsMovement():
		return removeByID(s.Movements(k), id)
	case k.IsDebt():
		return removeByID(s.Debts(k), id)
	case k.IsGoal():
		return removeByID(&s.Goals, id)
	}
	return false
}

func removeByID[T Entry](list *[]T, id int64) bool {
	for i, e := range *list {
		if e.EntryID() == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// MaxID returns the largest id stored in the month.
func (s *Snapshot) MaxID() int64 {
	var max int64
	for _, k := range Kinds {
		for _, e := range s.Entries(k) {
			if e.EntryID() > max {
				max = e.EntryID()
			}
		}
	}
	return max
}

// Months returns the stored keys in ascending order.
func (l Ledger) Months() []MonthKey {
	keys := make([]MonthKey, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone deep-copies every month.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, s := range l {
		out[k] = s.Clone()
	}
	return out
}

// MaxID returns the largest id across all months.
func (l Ledger) MaxID() int64 {
	var max int64
	for _, s := range l {
		if id := s.MaxID(); id > max {
			max = id
		}
	}
	return max
}
