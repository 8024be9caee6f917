package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Valuation is an externally supplied absolute balance for an account on a
// given date (e.g. an investment mark-to-market). It replaces the prior
// balance outright rather than adjusting it.
type Valuation struct {
	Date      Date
	AccountID int64
	Value     decimal.Decimal
}

// NetWorthPolicy says which balances count toward the aggregate.
type NetWorthPolicy struct {
	// IncludedAccounts holds the ids of real accounts flagged
	// include_in_net_worth.
	IncludedAccounts map[int64]bool
	// IncludeDebt mirrors the flag on the virtual debt account.
	IncludeDebt bool
}

// PolicyFromAccounts derives the net-worth policy from account metadata.
func PolicyFromAccounts(accounts []Account) NetWorthPolicy {
	p := NetWorthPolicy{IncludedAccounts: make(map[int64]bool)}
	for _, a := range accounts {
		if a.IsVirtual {
			p.IncludeDebt = a.IncludeInNetWorth
			continue
		}
		if a.IncludeInNetWorth {
			p.IncludedAccounts[a.ID] = true
		}
	}
	return p
}

// NetWorth evaluates the aggregate under a policy.
func NetWorth(b *Balances, p NetWorthPolicy) decimal.Decimal {
	total := decimal.Zero
	for id, v := range b.Accounts {
		if p.IncludedAccounts[id] {
			total = total.Add(v)
		}
	}
	if p.IncludeDebt {
		total = total.Add(b.DebtTotal())
	}
	return total
}

// Replay walks transactions and valuation overrides in non-decreasing date
// order from a starting snapshot and emits one net-worth sample per date
// that had at least one event, evaluated after all of that date's events.
// Dates with no events produce no sample. The starting snapshot is not
// modified; the returned samples are in date order.
//
// Within a date, transactions apply in (date, id) order first, then
// valuations: an external valuation for a day stands regardless of cash
// movements recorded the same day.
func Replay(start *Balances, txs []Transaction, vals []Valuation, p NetWorthPolicy) []NetWorthSample {
	b := start.Clone()

	ordered := make([]Transaction, len(txs))
	copy(ordered, txs)
	SortTransactions(ordered)

	txByDate := make(map[string][]Transaction)
	valByDate := make(map[string][]Valuation)
	dates := make(map[string]Date)
	for _, t := range ordered {
		k := t.Date.Key()
		txByDate[k] = append(txByDate[k], t)
		dates[k] = t.Date
	}
	for _, v := range vals {
		k := v.Date.Key()
		valByDate[k] = append(valByDate[k], v)
		dates[k] = v.Date
	}

	keys := make([]string, 0, len(dates))
	for k := range dates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	samples := make([]NetWorthSample, 0, len(keys))
	for _, k := range keys {
		for _, t := range txByDate[k] {
			Apply(t, b)
		}
		for _, v := range valByDate[k] {
			if _, ok := b.Accounts[v.AccountID]; ok {
				b.Accounts[v.AccountID] = v.Value
			}
		}
		samples = append(samples, NetWorthSample{Date: dates[k], NetWorth: NetWorth(b, p)})
	}
	return samples
}
