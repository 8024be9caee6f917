// Package store declares the ports the ledger core and HTTP surface consume.
// Implementations live in internal/storage (SQLite) and internal/memory.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

var (
	// ErrNotFound is returned for lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a unique name is taken.
	ErrDuplicateName = errors.New("name already exists")
)

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Kind   core.TransactionKind // empty = all kinds
	Limit  int
	Offset int
}

// TransactionDetails is a transaction joined with display names.
type TransactionDetails struct {
	core.Transaction
	CategoryName        string
	IncomeAccountName   string
	ExpenseAccountName  string
	OutflowAccountName  string
	InflowAccountName   string
	InvolvedAccountName string
}

type (
	AccountStore interface {
		// ListAccounts returns all accounts ordered by name.
		ListAccounts(ctx context.Context) ([]core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		// CreateAccount inserts a non-virtual account; the single virtual
		// debt row is seeded by migration and never created through here.
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		// UpdateBalance overwrites one account's current balance.
		UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
		// UpdateOpeningBalance overwrites the starting-snapshot balance used
		// by recalculation.
		UpdateOpeningBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// ListTransactions returns joined rows for display, newest first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionDetails, error)
		// TransactionsFrom returns every transaction dated on or after the
		// epoch, in (date, id) replay order.
		TransactionsFrom(ctx context.Context, epoch core.Date) ([]core.Transaction, error)
	}

	NetWorthStore interface {
		// UpsertNetWorth writes a sample, overwriting any prior value for
		// the date.
		UpsertNetWorth(ctx context.Context, s core.NetWorthSample) error
		// RecordNetWorthOnce writes a sample only if the date is vacant
		// (the daily "record now" path; replays overwrite via upsert).
		RecordNetWorthOnce(ctx context.Context, s core.NetWorthSample) error
		NetWorthHistory(ctx context.Context, from core.Date) ([]core.NetWorthSample, error)
		// DeleteNetWorthFrom clears the series from a date onward, ahead of
		// a historical re-derivation.
		DeleteNetWorthFrom(ctx context.Context, from core.Date) error
	}

	// DashboardReader provides the monthly aggregates the dashboard shows.
	DashboardReader interface {
		SumByKind(ctx context.Context, kind core.TransactionKind, from, to core.Date) (decimal.Decimal, error)
		// SumBorrowings totals debt/borrowing rows for the month view,
		// which counts them as spending.
		SumBorrowings(ctx context.Context, from, to core.Date) (decimal.Decimal, error)
		CategoryBreakdown(ctx context.Context, from, to core.Date, limit int) ([]core.CategoryAmount, error)
		MonthlySpend(ctx context.Context, months int) ([]core.MonthSpend, error)
	}
)

// Store is the full persistent-store surface.
type Store interface {
	AccountStore
	CategoryStore
	TransactionStore
	NetWorthStore
	DashboardReader
	Close() error
}
