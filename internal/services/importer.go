package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kosh/internal/amqp"
	"kosh/internal/core"
	"kosh/internal/sheets"
	"kosh/internal/store"
)

// Importer loads raw-flow rows from a spreadsheet source into the store.
// Rows already present are skipped, bad rows are counted and reported, and
// one recalc runs at the end instead of per row.
type Importer struct {
	store  store.Store
	source sheets.RawFlowReader
	txns   *TransactionService
	epoch  core.Date
}

func NewImporter(st store.Store, source sheets.RawFlowReader, txns *TransactionService, epoch core.Date) *Importer {
	return &Importer{store: st, source: source, txns: txns, epoch: epoch}
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int
	Skipped  int
	Errored  int
	Errors   []string
}

// Run reads every raw-flow row and saves the ones that resolve cleanly.
// A row error never aborts the run.
func (im *Importer) Run(ctx context.Context) (ImportResult, error) {
	var result ImportResult

	rows, err := im.source.ReadRawFlows(ctx)
	if err != nil {
		return result, fmt.Errorf("read raw flows: %w", err)
	}

	accountIDs, err := im.accountIndex(ctx)
	if err != nil {
		return result, err
	}
	categoryIDs, err := im.categoryIndex(ctx)
	if err != nil {
		return result, err
	}
	seen, err := im.existingIndex(ctx)
	if err != nil {
		return result, err
	}

	for _, row := range rows {
		t, err := im.buildTransaction(ctx, row, accountIDs, categoryIDs)
		if err != nil {
			result.Errored++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Row, err))
			slog.WarnContext(ctx, "Skipping unimportable row", "row", row.Row, "error", err)
			continue
		}

		key := dedupeKey(t)
		if seen[key] {
			result.Skipped++
			continue
		}

		if _, err := im.store.CreateTransaction(ctx, t); err != nil {
			result.Errored++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Row, err))
			slog.WarnContext(ctx, "Failed to save imported row", "row", row.Row, "error", err)
			continue
		}
		seen[key] = true
		result.Imported++
	}

	if result.Imported > 0 {
		im.txns.RequestRecalc(ctx, amqp.ReasonImport)
	}

	slog.InfoContext(ctx, "Import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errored", result.Errored)

	return result, nil
}

func (im *Importer) buildTransaction(ctx context.Context, row sheets.RawFlowRow, accountIDs, categoryIDs map[string]int64) (core.Transaction, error) {
	if err := row.Date.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", row.DateRaw, err)
	}
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}
	if row.Name == "" {
		return core.Transaction{}, core.ErrEmptyName
	}

	categoryID, err := im.resolveCategory(ctx, row.Category, categoryIDs)
	if err != nil {
		return core.Transaction{}, err
	}

	var t core.Transaction
	switch core.TransactionKind(row.Kind) {
	case core.Income:
		target, err := resolveAccount(accountIDs, row.IncomeAccount, "income account")
		if err != nil {
			return core.Transaction{}, err
		}
		t = core.NewIncome(row.Date, row.Name, amount, target)
	case core.Expense:
		source, err := resolveAccount(accountIDs, row.ExpenseAccount, "expense account")
		if err != nil {
			return core.Transaction{}, err
		}
		t = core.NewExpense(row.Date, row.Name, amount, source)
		t.ExpenseInstrument = row.ExpenseInstrument
		t.IsRefund = row.Refund
	case core.Transfer:
		out, err := resolveAccount(accountIDs, row.OutflowAccount, "outflow account")
		if err != nil {
			return core.Transaction{}, err
		}
		in, err := resolveAccount(accountIDs, row.InflowAccount, "inflow account")
		if err != nil {
			return core.Transaction{}, err
		}
		t = core.NewTransfer(row.Date, row.Name, amount, out, in)
	case core.Debt:
		debtKind, err := core.ParseDebtKind(row.DebtKind)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("debt type %q: %w", row.DebtKind, err)
		}
		// Borrowing touches only the counterparty ledger, so the involved
		// account is optional there.
		var involved int64
		if row.InvolvedAccount != "" || debtKind != core.Borrowing {
			involved, err = resolveAccount(accountIDs, row.InvolvedAccount, "involved account")
			if err != nil {
				return core.Transaction{}, err
			}
		}
		// The sheet has no counterparty column; the row name stands in.
		t = core.NewDebt(row.Date, row.Name, amount, debtKind, involved, row.Name)
	default:
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, row.Kind)
	}

	t.CategoryID = categoryID
	t.Notes = row.Notes
	return t, nil
}

func (im *Importer) resolveCategory(ctx context.Context, name string, categoryIDs map[string]int64) (int64, error) {
	if name == "" {
		return 0, nil
	}
	if id, ok := categoryIDs[normalizeName(name)]; ok {
		return id, nil
	}
	created, err := im.store.CreateCategory(ctx, core.Category{Name: name})
	if err != nil {
		return 0, fmt.Errorf("create category %q: %w", name, err)
	}
	categoryIDs[normalizeName(name)] = created.ID
	return created.ID, nil
}

func (im *Importer) accountIndex(ctx context.Context) (map[string]int64, error) {
	accounts, err := im.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	idx := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		idx[normalizeName(a.Name)] = a.ID
	}
	return idx, nil
}

func (im *Importer) categoryIndex(ctx context.Context) (map[string]int64, error) {
	categories, err := im.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	idx := make(map[string]int64, len(categories))
	for _, c := range categories {
		idx[normalizeName(c.Name)] = c.ID
	}
	return idx, nil
}

func (im *Importer) existingIndex(ctx context.Context) (map[string]bool, error) {
	existing, err := im.store.TransactionsFrom(ctx, im.epoch)
	if err != nil {
		return nil, fmt.Errorf("load existing transactions: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[dedupeKey(t)] = true
	}
	return seen, nil
}

func resolveAccount(accountIDs map[string]int64, name, role string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("missing %s", role)
	}
	id, ok := accountIDs[normalizeName(name)]
	if !ok {
		return 0, fmt.Errorf("unknown %s %q", role, name)
	}
	return id, nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// dedupeKey identifies a row across runs. Two genuine same-day duplicates
// would need distinct names in the sheet.
func dedupeKey(t core.Transaction) string {
	return strings.Join([]string{t.Date.Key(), string(t.Kind), t.Name, t.Amount.String()}, "|")
}
