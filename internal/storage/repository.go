// Package storage is the SQLite implementation of the store ports.
// Monetary columns are TEXT holding canonical decimal strings; sums and
// groupings are folded in Go so amounts never pass through floats.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kosh/internal/core"
	"kosh/internal/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

const accountColumns = "id, name, account_type, balance, opening_balance, is_virtual, include_in_net_worth, show_in_investments"

func scanAccount(s interface{ Scan(...any) error }) (core.Account, error) {
	var (
		a                core.Account
		balance, opening string
		virtual, nw, inv int
		accountType      string
	)
	if err := s.Scan(&a.ID, &a.Name, &accountType, &balance, &opening, &virtual, &nw, &inv); err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(accountType)
	a.IsVirtual = virtual != 0
	a.IncludeInNetWorth = nw != 0
	a.ShowInInvestments = inv != 0

	var err error
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Account{}, fmt.Errorf("account %d balance %q: %w", a.ID, balance, err)
	}
	if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return core.Account{}, fmt.Errorf("account %d opening balance %q: %w", a.ID, opening, err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, store.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (name, account_type, balance, opening_balance, is_virtual, include_in_net_worth, show_in_investments)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		a.Name, string(a.Type), a.Balance.String(), a.OpeningBalance.String(),
		boolToInt(a.IncludeInNetWorth), boolToInt(a.ShowInInvestments))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Account{}, store.ErrDuplicateName
		}
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account insert id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return fmt.Errorf("update balance for account %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpdateOpeningBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET opening_balance = ? WHERE id = ?", balance.String(), id)
	if err != nil {
		return fmt.Errorf("update opening balance for account %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, type FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.Type == "" {
		c.Type = "expense"
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, type) VALUES (?, ?)", c.Name, c.Type)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, store.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return c, nil
}

const transactionColumns = `id, date, name, amount, type, category_id,
	income_account_id, expense_account_id, expense_instrument,
	outflow_account_id, inflow_account_id,
	debt_type, involved_account_id, counterparty, is_refund, notes`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (date, name, amount, type, category_id,
			income_account_id, expense_account_id, expense_instrument,
			outflow_account_id, inflow_account_id,
			debt_type, involved_account_id, counterparty, is_refund, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Date.Key(), t.Name, t.Amount.String(), string(t.Kind), nullID(t.CategoryID),
		nullID(t.IncomeAccountID), nullID(t.ExpenseAccountID), nullString(t.ExpenseInstrument),
		nullID(t.OutflowAccountID), nullID(t.InflowAccountID),
		nullString(string(t.DebtKind)), nullID(t.InvolvedAccountID), nullString(t.Counterparty),
		boolToInt(t.IsRefund), nullString(t.Notes))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return t, nil
}

func scanTransaction(s interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       string
		amount     string
		kind       string
		category   sql.NullInt64
		incomeID   sql.NullInt64
		expenseID  sql.NullInt64
		instrument sql.NullString
		outflowID  sql.NullInt64
		inflowID   sql.NullInt64
		debtKind   sql.NullString
		involvedID sql.NullInt64
		cpty       sql.NullString
		refund     int
		notes      sql.NullString
	)
	if err := s.Scan(&t.ID, &date, &t.Name, &amount, &kind, &category,
		&incomeID, &expenseID, &instrument, &outflowID, &inflowID,
		&debtKind, &involvedID, &cpty, &refund, &notes); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d date %q: %w", t.ID, date, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d amount %q: %w", t.ID, amount, err)
	}
	t.Kind = core.TransactionKind(kind)
	t.CategoryID = category.Int64
	t.IncomeAccountID = incomeID.Int64
	t.ExpenseAccountID = expenseID.Int64
	t.ExpenseInstrument = instrument.String
	t.OutflowAccountID = outflowID.Int64
	t.InflowAccountID = inflowID.Int64
	t.DebtKind = core.DebtKind(debtKind.String)
	t.InvolvedAccountID = involvedID.Int64
	t.Counterparty = cpty.String
	t.IsRefund = refund != 0
	t.Notes = notes.String
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]store.TransactionDetails, error) {
	query := `SELECT t.id, t.date, t.name, t.amount, t.type, t.category_id,
		t.income_account_id, t.expense_account_id, t.expense_instrument,
		t.outflow_account_id, t.inflow_account_id,
		t.debt_type, t.involved_account_id, t.counterparty, t.is_refund, t.notes,
		COALESCE(c.name, ''),
		COALESCE(ia.name, ''), COALESCE(ea.name, ''),
		COALESCE(oa.name, ''), COALESCE(fa.name, ''), COALESCE(va.name, '')
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
	LEFT JOIN accounts ia ON ia.id = t.income_account_id
	LEFT JOIN accounts ea ON ea.id = t.expense_account_id
	LEFT JOIN accounts oa ON oa.id = t.outflow_account_id
	LEFT JOIN accounts fa ON fa.id = t.inflow_account_id
	LEFT JOIN accounts va ON va.id = t.involved_account_id`

	var args []any
	if f.Kind != "" {
		query += " WHERE t.type = ?"
		args = append(args, string(f.Kind))
	}
	query += " ORDER BY t.date DESC, t.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []store.TransactionDetails
	for rows.Next() {
		var (
			d          store.TransactionDetails
			date       string
			amount     string
			kind       string
			category   sql.NullInt64
			incomeID   sql.NullInt64
			expenseID  sql.NullInt64
			instrument sql.NullString
			outflowID  sql.NullInt64
			inflowID   sql.NullInt64
			debtKind   sql.NullString
			involvedID sql.NullInt64
			cpty       sql.NullString
			refund     int
			notes      sql.NullString
		)
		if err := rows.Scan(&d.ID, &date, &d.Name, &amount, &kind, &category,
			&incomeID, &expenseID, &instrument, &outflowID, &inflowID,
			&debtKind, &involvedID, &cpty, &refund, &notes,
			&d.CategoryName,
			&d.IncomeAccountName, &d.ExpenseAccountName,
			&d.OutflowAccountName, &d.InflowAccountName, &d.InvolvedAccountName); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		if d.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %d date %q: %w", d.ID, date, err)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %d amount %q: %w", d.ID, amount, err)
		}
		d.Kind = core.TransactionKind(kind)
		d.CategoryID = category.Int64
		d.IncomeAccountID = incomeID.Int64
		d.ExpenseAccountID = expenseID.Int64
		d.ExpenseInstrument = instrument.String
		d.OutflowAccountID = outflowID.Int64
		d.InflowAccountID = inflowID.Int64
		d.DebtKind = core.DebtKind(debtKind.String)
		d.InvolvedAccountID = involvedID.Int64
		d.Counterparty = cpty.String
		d.IsRefund = refund != 0
		d.Notes = notes.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TransactionsFrom(ctx context.Context, epoch core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE date >= ? ORDER BY date, id",
		epoch.Key())
	if err != nil {
		return nil, fmt.Errorf("load transactions from %s: %w", epoch, err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *SQLiteRepository) UpsertNetWorth(ctx context.Context, s core.NetWorthSample) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO net_worth_history (date, value) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET value = excluded.value, recorded_at = datetime('now')`,
		s.Date.Key(), s.NetWorth.String())
	if err != nil {
		return fmt.Errorf("upsert net worth for %s: %w", s.Date, err)
	}
	return nil
}

func (r *SQLiteRepository) RecordNetWorthOnce(ctx context.Context, s core.NetWorthSample) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO net_worth_history (date, value) VALUES (?, ?)",
		s.Date.Key(), s.NetWorth.String())
	if err != nil {
		return fmt.Errorf("record net worth for %s: %w", s.Date, err)
	}
	return nil
}

func (r *SQLiteRepository) NetWorthHistory(ctx context.Context, from core.Date) ([]core.NetWorthSample, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT date, value FROM net_worth_history WHERE date >= ? ORDER BY date",
		from.Key())
	if err != nil {
		return nil, fmt.Errorf("load net worth history: %w", err)
	}
	defer rows.Close()

	var samples []core.NetWorthSample
	for rows.Next() {
		var (
			s     core.NetWorthSample
			date  string
			value string
		)
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("scan net worth row: %w", err)
		}
		if s.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("net worth date %q: %w", date, err)
		}
		if s.NetWorth, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("net worth value %q: %w", value, err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *SQLiteRepository) DeleteNetWorthFrom(ctx context.Context, from core.Date) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM net_worth_history WHERE date >= ?", from.Key())
	if err != nil {
		return fmt.Errorf("delete net worth from %s: %w", from, err)
	}
	return nil
}

func (r *SQLiteRepository) SumByKind(ctx context.Context, kind core.TransactionKind, from, to core.Date) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE type = ? AND date >= ? AND date <= ?",
		string(kind), from.Key(), to.Key())
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s transactions: %w", kind, err)
	}
	defer rows.Close()
	return sumAmounts(rows)
}

func (r *SQLiteRepository) SumBorrowings(ctx context.Context, from, to core.Date) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE type = ? AND debt_type = ? AND date >= ? AND date <= ?",
		string(core.Debt), string(core.Borrowing), from.Key(), to.Key())
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum borrowings: %w", err)
	}
	defer rows.Close()
	return sumAmounts(rows)
}

func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, from, to core.Date, limit int) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT COALESCE(c.name, 'Uncategorized'), t.amount
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.type = ? AND t.date >= ? AND t.date <= ?`,
		string(core.Expense), from.Key(), to.Key())
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	totals := map[string]decimal.Decimal{}
	for rows.Next() {
		var name, amount string
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("breakdown amount %q: %w", amount, err)
		}
		totals[name] = totals[name].Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Category: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SQLiteRepository) MonthlySpend(ctx context.Context, months int) ([]core.MonthSpend, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT substr(date, 1, 7), amount FROM transactions WHERE type = ?",
		string(core.Expense))
	if err != nil {
		return nil, fmt.Errorf("monthly spend: %w", err)
	}
	defer rows.Close()

	totals := map[string]decimal.Decimal{}
	for rows.Next() {
		var month, amount string
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly spend row: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("monthly spend amount %q: %w", amount, err)
		}
		totals[month] = totals[month].Add(d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(totals))
	for month := range totals {
		keys = append(keys, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if months > 0 && len(keys) > months {
		keys = keys[:months]
	}
	// oldest first for charting
	sort.Strings(keys)

	out := make([]core.MonthSpend, 0, len(keys))
	for _, month := range keys {
		out = append(out, core.MonthSpend{Month: month, Spending: totals[month]})
	}
	return out, nil
}

func sumAmounts(rows *sql.Rows) (decimal.Decimal, error) {
	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("stored amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
