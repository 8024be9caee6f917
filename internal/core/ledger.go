package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// OpeningCounterparty keys the portion of the debt ledger carried in from the
// starting snapshot, before any per-counterparty detail exists.
const OpeningCounterparty = "(opening)"

// Balances is the mutable state a replay folds over: real account balances
// keyed by account id, plus an explicit per-counterparty debt ledger. The
// virtual debt account stored in the database is a derived view of the
// ledger aggregate, never mutated directly here.
type Balances struct {
	Accounts       map[int64]decimal.Decimal
	Counterparties map[string]decimal.Decimal
}

// NewBalances builds a balance state from an opening snapshot of real
// accounts and an opening aggregate for the debt ledger.
func NewBalances(opening map[int64]decimal.Decimal, debtOpening decimal.Decimal) *Balances {
	b := &Balances{
		Accounts:       make(map[int64]decimal.Decimal, len(opening)),
		Counterparties: make(map[string]decimal.Decimal),
	}
	for id, v := range opening {
		b.Accounts[id] = v
	}
	if !debtOpening.IsZero() {
		b.Counterparties[OpeningCounterparty] = debtOpening
	}
	return b
}

// Clone returns an independent copy.
func (b *Balances) Clone() *Balances {
	c := &Balances{
		Accounts:       make(map[int64]decimal.Decimal, len(b.Accounts)),
		Counterparties: make(map[string]decimal.Decimal, len(b.Counterparties)),
	}
	for id, v := range b.Accounts {
		c.Accounts[id] = v
	}
	for name, v := range b.Counterparties {
		c.Counterparties[name] = v
	}
	return c
}

// DebtTotal nets the counterparty ledger: positive means people owe you,
// negative means you owe people.
func (b *Balances) DebtTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b.Counterparties {
		total = total.Add(v)
	}
	return total
}

// adjust applies a signed delta to an account. A reference to an account
// missing from the map is dropped; a replay batch never aborts on an
// orphaned account id.
func (b *Balances) adjust(accountID int64, delta decimal.Decimal) {
	if accountID == 0 {
		return
	}
	cur, ok := b.Accounts[accountID]
	if !ok {
		return
	}
	b.Accounts[accountID] = cur.Add(delta)
}

func (b *Balances) owe(counterparty string, delta decimal.Decimal) {
	b.Counterparties[counterparty] = b.Counterparties[counterparty].Add(delta)
}

// Apply mutates the balances of exactly the accounts a transaction
// references; everything else is untouched.
//
// Paying mirrors lending (involved -= a, debt += a); historical rows were
// recorded with that direction and replays must reproduce them.
func Apply(t Transaction, b *Balances) {
	a := t.Amount
	switch t.Kind {
	case Income:
		b.adjust(t.IncomeAccountID, a)
	case Expense:
		b.adjust(t.ExpenseAccountID, a.Neg())
	case Transfer:
		b.adjust(t.OutflowAccountID, a.Neg())
		b.adjust(t.InflowAccountID, a)
	case Debt:
		switch t.DebtKind {
		case Lending:
			b.adjust(t.InvolvedAccountID, a.Neg())
			b.owe(t.Counterparty, a)
		case Borrowing:
			b.owe(t.Counterparty, a.Neg())
		case Paying:
			b.adjust(t.InvolvedAccountID, a.Neg())
			b.owe(t.Counterparty, a)
		case Receiving:
			b.adjust(t.InvolvedAccountID, a)
			b.owe(t.Counterparty, a.Neg())
		}
	}
}

// SortTransactions orders transactions by (date, id), the authoritative
// replay order. The sort is stable so untagged records keep insert order.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date.Time)
		}
		return txs[i].ID < txs[j].ID
	})
}

// Recalculate is the authoritative balance derivation: reset every real
// account to its opening balance, clear the counterparty ledger back to the
// opening aggregate, then fold every transaction in (date, id) order.
// Pure function of its inputs; re-running it from the same snapshot and the
// same transaction set yields identical balances.
func Recalculate(opening map[int64]decimal.Decimal, debtOpening decimal.Decimal, txs []Transaction) *Balances {
	b := NewBalances(opening, debtOpening)
	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	SortTransactions(ordered)
	for _, t := range ordered {
		Apply(t, b)
	}
	return b
}
