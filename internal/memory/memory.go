// Package memory holds an in-process implementation of the store ports.
// It backs the memory data backend and doubles as the store used by
// service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/store"
)

type Store struct {
	mu         sync.Mutex
	accounts   []core.Account
	categories []core.Category
	txns       []core.Transaction
	netWorth   map[string]core.NetWorthSample
	nextAcct   int64
	nextCat    int64
	nextTxn    int64
}

// New returns an empty store with the virtual debt account seeded, the
// same shape migrations leave a fresh database in.
func New() *Store {
	s := &Store{netWorth: map[string]core.NetWorthSample{}, nextAcct: 1, nextCat: 1, nextTxn: 1}
	s.accounts = append(s.accounts, core.Account{
		ID:                s.nextAcct,
		Name:              "Debt",
		Type:              core.DebtLedger,
		IsVirtual:         true,
		IncludeInNetWorth: true,
	})
	s.nextAcct++
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Account(nil), s.accounts...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Account{}, store.ErrNotFound
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Name == a.Name {
			return core.Account{}, store.ErrDuplicateName
		}
	}
	a.ID = s.nextAcct
	a.IsVirtual = false
	s.nextAcct++
	s.accounts = append(s.accounts, a)
	return a, nil
}

func (s *Store) UpdateBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].Balance = balance
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) UpdateOpeningBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].OpeningBalance = balance
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category(nil), s.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.Name == c.Name {
			return core.Category{}, store.ErrDuplicateName
		}
	}
	if c.Type == "" {
		c.Type = "expense"
	}
	c.ID = s.nextCat
	s.nextCat++
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.nextTxn
	s.nextTxn++
	s.txns = append(s.txns, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]store.TransactionDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catNames := map[int64]string{}
	for _, c := range s.categories {
		catNames[c.ID] = c.Name
	}
	acctNames := map[int64]string{}
	for _, a := range s.accounts {
		acctNames[a.ID] = a.Name
	}

	var all []core.Transaction
	for _, t := range s.txns {
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		all = append(all, t)
	}
	// newest first for display
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date.Time) {
			return all[i].Date.After(all[j].Date.Time)
		}
		return all[i].ID > all[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(all) {
			all = nil
		} else {
			all = all[f.Offset:]
		}
	}
	if f.Limit > 0 && len(all) > f.Limit {
		all = all[:f.Limit]
	}

	out := make([]store.TransactionDetails, 0, len(all))
	for _, t := range all {
		out = append(out, store.TransactionDetails{
			Transaction:         t,
			CategoryName:        catNames[t.CategoryID],
			IncomeAccountName:   acctNames[t.IncomeAccountID],
			ExpenseAccountName:  acctNames[t.ExpenseAccountID],
			OutflowAccountName:  acctNames[t.OutflowAccountID],
			InflowAccountName:   acctNames[t.InflowAccountID],
			InvolvedAccountName: acctNames[t.InvolvedAccountID],
		})
	}
	return out, nil
}

func (s *Store) TransactionsFrom(_ context.Context, epoch core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.txns {
		if t.Date.Before(epoch.Time) {
			continue
		}
		out = append(out, t)
	}
	core.SortTransactions(out)
	return out, nil
}

func (s *Store) UpsertNetWorth(_ context.Context, sample core.NetWorthSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.netWorth[sample.Date.Key()] = sample
	return nil
}

func (s *Store) RecordNetWorthOnce(_ context.Context, sample core.NetWorthSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.netWorth[sample.Date.Key()]; ok {
		return nil
	}
	s.netWorth[sample.Date.Key()] = sample
	return nil
}

func (s *Store) NetWorthHistory(_ context.Context, from core.Date) ([]core.NetWorthSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.NetWorthSample
	for _, sample := range s.netWorth {
		if sample.Date.Before(from.Time) {
			continue
		}
		out = append(out, sample)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) DeleteNetWorthFrom(_ context.Context, from core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sample := range s.netWorth {
		if !sample.Date.Before(from.Time) {
			delete(s.netWorth, key)
		}
	}
	return nil
}

func (s *Store) SumByKind(_ context.Context, kind core.TransactionKind, from, to core.Date) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, t := range s.txns {
		if t.Kind != kind || !inRange(t.Date, from, to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) SumBorrowings(_ context.Context, from, to core.Date) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, t := range s.txns {
		if t.Kind != core.Debt || t.DebtKind != core.Borrowing || !inRange(t.Date, from, to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) CategoryBreakdown(_ context.Context, from, to core.Date, limit int) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catNames := map[int64]string{}
	for _, c := range s.categories {
		catNames[c.ID] = c.Name
	}
	totals := map[string]decimal.Decimal{}
	for _, t := range s.txns {
		if t.Kind != core.Expense || !inRange(t.Date, from, to) {
			continue
		}
		name := catNames[t.CategoryID]
		if name == "" {
			name = "Uncategorized"
		}
		totals[name] = totals[name].Add(t.Amount)
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

func (s *Store) MonthlySpend(_ context.Context, months int) ([]core.MonthSpend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := map[string]decimal.Decimal{}
	for _, t := range s.txns {
		if t.Kind != core.Expense {
			continue
		}
		month := t.Date.Key()[:7]
		totals[month] = totals[month].Add(t.Amount)
	}

	keys := make([]string, 0, len(totals))
	for month := range totals {
		keys = append(keys, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if months > 0 && len(keys) > months {
		keys = keys[:months]
	}
	sort.Strings(keys)

	out := make([]core.MonthSpend, 0, len(keys))
	for _, month := range keys {
		out = append(out, core.MonthSpend{Month: month, Spending: totals[month]})
	}
	return out, nil
}

func inRange(d, from, to core.Date) bool {
	return !d.Before(from.Time) && !d.After(to.Time)
}
