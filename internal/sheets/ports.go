// Package sheets declares ports for the spreadsheet sources the importer
// and backfill read from.
package sheets

import (
	"context"

	"kosh/internal/core"
)

// RawFlowRow is one money movement as entered in the raw-flows sheet.
// Account and category references are by name; the importer resolves them
// against the database.
type RawFlowRow struct {
	Row int // 1-based sheet row, for error reporting
	// Date is zero when DateRaw did not parse; consumers count such rows
	// as errors instead of the reader aborting the batch.
	Date              core.Date
	DateRaw           string
	Name              string
	Amount            string
	Kind              string
	Category          string
	IncomeAccount     string
	ExpenseAccount    string
	ExpenseInstrument string
	OutflowAccount    string
	InflowAccount     string
	InvolvedAccount   string
	DebtKind          string
	Refund            bool
	Notes             string
}

// ValuationRow is a point-in-time market value for one account, as entered
// in the valuations sheet.
type ValuationRow struct {
	Row     int
	Date    core.Date // zero when DateRaw did not parse
	DateRaw string
	Account string
	Value   string
}

// Ports for inbound spreadsheet adapters.
type (
	RawFlowReader interface {
		ReadRawFlows(ctx context.Context) ([]RawFlowRow, error)
	}

	ValuationReader interface {
		ReadValuations(ctx context.Context) ([]ValuationRow, error)
	}
)
