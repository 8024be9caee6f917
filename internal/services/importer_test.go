package services

import (
	"context"
	"strings"
	"testing"

	"kosh/internal/core"
	"kosh/internal/memory"
	"kosh/internal/sheets"
	sheetsmem "kosh/internal/sheets/memory"
	"kosh/internal/store"
)

func newImporter(t *testing.T, st *memory.Store, rows []sheets.RawFlowRow) *Importer {
	t.Helper()
	recalc := NewRecalcService(st, testEpoch)
	txns := NewTransactionService(st, nil, recalc)
	return NewImporter(st, sheetsmem.New(rows, nil), txns, testEpoch)
}

func TestImporterRun(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	seedAccount(t, st, "Savings", "0")

	rows := []sheets.RawFlowRow{
		{Row: 2, Date: core.NewDate(2024, 1, 2), Name: "Salary", Amount: "2500", Kind: "income", Category: "Work", IncomeAccount: "Checking"},
		{Row: 3, Date: core.NewDate(2024, 1, 3), Name: "Groceries", Amount: "42,50", Kind: "expense", Category: "Food", ExpenseAccount: "checking", ExpenseInstrument: "Debit Card", Refund: true},
		{Row: 4, Date: core.NewDate(2024, 1, 4), Name: "To savings", Amount: "30", Kind: "transfer", OutflowAccount: "Checking", InflowAccount: "Savings"},
		{Row: 5, Date: core.NewDate(2024, 1, 5), Name: "Sam", Amount: "10", Kind: "debt", DebtKind: "Sending", InvolvedAccount: "Checking"},
		{Row: 6, Date: core.NewDate(2024, 1, 6), Name: "Mystery", Amount: "5", Kind: "expense", ExpenseAccount: "Ghost"},
		{Row: 7, Date: core.NewDate(2024, 1, 7), Name: "Bad amount", Amount: "-3", Kind: "expense", ExpenseAccount: "Checking"},
	}

	result, err := newImporter(t, st, rows).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Imported != 4 || result.Skipped != 0 || result.Errored != 2 {
		t.Fatalf("result = %+v, want 4 imported, 0 skipped, 2 errored", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", result.Errors)
	}

	txns, err := st.TransactionsFrom(ctx, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 4 {
		t.Fatalf("stored %d transactions, want 4", len(txns))
	}

	// legacy "Sending" maps to paying
	debt := txns[3]
	if debt.Kind != core.Debt || debt.DebtKind != core.Paying || debt.Counterparty != "Sam" {
		t.Errorf("unexpected debt transaction: %+v", debt)
	}

	// categories are created on demand
	cats, err := st.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 {
		t.Errorf("categories = %d, want Work and Food", len(cats))
	}

	// import triggers the inline recalc
	if got := findAccount(t, st, checking.ID).Balance; got.IsZero() {
		t.Error("balances should be recalculated after import")
	}
}

func TestImporterSkipsAlreadyImportedRows(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedAccount(t, st, "Checking", "0")

	rows := []sheets.RawFlowRow{
		{Row: 2, Date: core.NewDate(2024, 1, 2), Name: "Salary", Amount: "2500", Kind: "income", IncomeAccount: "Checking"},
	}

	im := newImporter(t, st, rows)
	if result, err := im.Run(ctx); err != nil || result.Imported != 1 {
		t.Fatalf("first run = (%+v, %v), want 1 imported", result, err)
	}

	result, err := im.Run(ctx)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if result.Imported != 0 || result.Skipped != 1 {
		t.Errorf("second run = %+v, want everything skipped", result)
	}

	all, err := st.ListTransactions(ctx, store.TransactionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("stored %d transactions, want 1", len(all))
	}
}

func TestImporterCountsBadDateRowsAndContinues(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedAccount(t, st, "Checking", "0")

	// the reader passes unparseable dates through as zero dates
	rows := []sheets.RawFlowRow{
		{Row: 2, Date: core.NewDate(2024, 1, 2), Name: "Salary", Amount: "2500", Kind: "income", IncomeAccount: "Checking"},
		{Row: 3, DateRaw: "not-a-date", Name: "Oops", Amount: "10", Kind: "expense", ExpenseAccount: "Checking"},
		{Row: 4, Date: core.NewDate(2024, 1, 4), Name: "Groceries", Amount: "42,50", Kind: "expense", ExpenseAccount: "Checking"},
	}

	result, err := newImporter(t, st, rows).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v, a bad date must not abort the run", err)
	}
	if result.Imported != 2 || result.Errored != 1 {
		t.Fatalf("result = %+v, want 2 imported and the bad-date row errored", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "not-a-date") {
		t.Errorf("errors = %v, want the raw date cell reported", result.Errors)
	}

	txns, err := st.TransactionsFrom(ctx, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 2 {
		t.Errorf("stored %d transactions, want 2", len(txns))
	}
}

func TestImporterBorrowingNeedsNoAccount(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	rows := []sheets.RawFlowRow{
		{Row: 2, Date: core.NewDate(2024, 1, 2), Name: "Dinner fronted by Alex", Amount: "45", Kind: "debt", DebtKind: "Borrowing"},
	}

	result, err := newImporter(t, st, rows).Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Imported != 1 || result.Errored != 0 {
		t.Fatalf("result = %+v, want the borrowing imported", result)
	}
}
