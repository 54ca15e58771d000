package sheets

import (
	"context"

	"presupuesto/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthExporter writes one month to an external spreadsheet, replacing
	// whatever an earlier export left there.
	MonthExporter interface {
		ExportMonth(ctx context.Context, month core.MonthKey, s *core.Snapshot) error
	}

	// ExportLister reports which months already have a tab.
	ExportLister interface {
		ExportedMonths(ctx context.Context) ([]core.MonthKey, error)
	}
)
