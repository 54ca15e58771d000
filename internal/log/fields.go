package log

import "sort"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldSubcomponent = "subcomponent"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldStorageKey   = "storage_key"
	FieldBackend      = "backend"
	FieldMonth        = "month"
	FieldKind         = "kind"
	FieldEntryID      = "entry_id"
	FieldAmount       = "amount"
	FieldRate         = "monthly_rate"
	FieldInstallment  = "installment"
	FieldVersion      = "version"
	FieldCount        = "count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentRollover  = "rollover"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpDeposit  = "deposit"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpMigrate  = "migrate"
	OpSeed     = "seed"
	OpReset    = "reset"
	OpNotify   = "notify"
	OpSync     = "sync"
	OpExport   = "export"
	OpRollover = "rollover"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the month, list and id of a ledger entry.
func (f LogFields) WithEntry(month, kind string, id int64) LogFields {
	f[FieldMonth] = month
	f[FieldKind] = kind
	if id != 0 {
		f[FieldEntryID] = id
	}
	return f
}

// WithDebt adds the terms of an installment debt.
func (f LogFields) WithDebt(principal int64, rate float64, installment int64) LogFields {
	f[FieldAmount] = principal
	f[FieldRate] = rate
	f[FieldInstallment] = installment
	return f
}

// WithHTTP adds request and response fields.
func (f LogFields) WithHTTP(method, path string, status int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = status
	f[FieldDuration] = durationMs
	return f
}

// ToSlice converts LogFields to a slice for slog. Keys are sorted so output
// is stable.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
