package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/sheets"
	"kosh/internal/store"
)

// RecalcService replays the full transaction history from the opening
// snapshot and rewrites stored balances. Stored balances are a cache;
// the replay is the source of truth.
type RecalcService struct {
	store store.Store
	epoch core.Date
}

func NewRecalcService(st store.Store, epoch core.Date) *RecalcService {
	return &RecalcService{store: st, epoch: epoch}
}

// Recalculate derives every balance from opening snapshots plus history
// and writes the results back, including the virtual debt account.
func (s *RecalcService) Recalculate(ctx context.Context) (*core.Balances, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	opening, debtOpening, virtualID := openingSnapshot(accounts)

	txns, err := s.store.TransactionsFrom(ctx, s.epoch)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	balances := core.Recalculate(opening, debtOpening, txns)

	for id, balance := range balances.Accounts {
		if err := s.store.UpdateBalance(ctx, id, balance); err != nil {
			return nil, fmt.Errorf("write balance for account %d: %w", id, err)
		}
	}
	if virtualID != 0 {
		if err := s.store.UpdateBalance(ctx, virtualID, balances.DebtTotal()); err != nil {
			return nil, fmt.Errorf("write debt ledger balance: %w", err)
		}
	}

	slog.InfoContext(ctx, "Recalculated balances",
		"accounts", len(balances.Accounts),
		"transactions", len(txns),
		"debt_total", balances.DebtTotal().String())

	return balances, nil
}

// RecordNetWorth computes today's net worth from a fresh replay and writes
// the sample. Without force the write is first-wins and only happens at or
// after recordAfterHour, so early readings do not freeze a partial day.
func (s *RecalcService) RecordNetWorth(ctx context.Context, now time.Time, recordAfterHour int, force bool) (core.NetWorthSample, bool, error) {
	if !force && now.Hour() < recordAfterHour {
		return core.NetWorthSample{}, false, nil
	}

	balances, err := s.Recalculate(ctx)
	if err != nil {
		return core.NetWorthSample{}, false, err
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.NetWorthSample{}, false, fmt.Errorf("load accounts: %w", err)
	}

	sample := core.NetWorthSample{
		Date:     core.NewDate(now.Year(), int(now.Month()), now.Day()),
		NetWorth: core.NetWorth(balances, core.PolicyFromAccounts(accounts)),
	}

	if force {
		err = s.store.UpsertNetWorth(ctx, sample)
	} else {
		err = s.store.RecordNetWorthOnce(ctx, sample)
	}
	if err != nil {
		return core.NetWorthSample{}, false, err
	}

	slog.InfoContext(ctx, "Recorded net worth",
		"date", sample.Date.String(),
		"net_worth", sample.NetWorth.String())

	return sample, true, nil
}

// Backfill rebuilds the net-worth series from the epoch: one sample per
// date that saw a transaction or a valuation override. Existing samples
// from the epoch onward are replaced.
func (s *RecalcService) Backfill(ctx context.Context, valuations []core.Valuation) ([]core.NetWorthSample, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	opening, debtOpening, _ := openingSnapshot(accounts)

	txns, err := s.store.TransactionsFrom(ctx, s.epoch)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	start := core.NewBalances(opening, debtOpening)
	samples := core.Replay(start, txns, valuations, core.PolicyFromAccounts(accounts))

	if err := s.store.DeleteNetWorthFrom(ctx, s.epoch); err != nil {
		return nil, fmt.Errorf("clear net worth history: %w", err)
	}
	for _, sample := range samples {
		if err := s.store.UpsertNetWorth(ctx, sample); err != nil {
			return nil, fmt.Errorf("write sample for %s: %w", sample.Date, err)
		}
	}

	slog.InfoContext(ctx, "Backfilled net worth history",
		"samples", len(samples),
		"transactions", len(txns),
		"valuations", len(valuations))

	return samples, nil
}

// ResolveValuations maps sheet valuation rows, keyed by account name, onto
// account ids. Malformed rows (unknown account, bad date, bad value) are
// dropped with a warning so a stale sheet cannot abort a backfill.
func (s *RecalcService) ResolveValuations(ctx context.Context, rows []sheets.ValuationRow) ([]core.Valuation, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	byName := make(map[string]int64, len(accounts))
	for _, a := range accounts {
		byName[strings.ToLower(strings.TrimSpace(a.Name))] = a.ID
	}

	var out []core.Valuation
	for _, row := range rows {
		if err := row.Date.Validate(); err != nil {
			slog.WarnContext(ctx, "Valuation with unparseable date",
				"row", row.Row, "date", row.DateRaw)
			continue
		}
		id, ok := byName[strings.ToLower(strings.TrimSpace(row.Account))]
		if !ok {
			slog.WarnContext(ctx, "Valuation for unknown account",
				"row", row.Row, "account", row.Account)
			continue
		}
		value, err := core.ParseBalance(row.Value)
		if err != nil {
			slog.WarnContext(ctx, "Valuation with unparseable value",
				"row", row.Row, "value", row.Value)
			continue
		}
		out = append(out, core.Valuation{Date: row.Date, AccountID: id, Value: value})
	}
	return out, nil
}

// openingSnapshot splits accounts into the opening-balance map the replay
// starts from, the opening debt aggregate, and the virtual account's id.
func openingSnapshot(accounts []core.Account) (map[int64]decimal.Decimal, decimal.Decimal, int64) {
	opening := map[int64]decimal.Decimal{}
	var debtOpening decimal.Decimal
	var virtualID int64
	for _, a := range accounts {
		if a.IsVirtual {
			debtOpening = a.OpeningBalance
			virtualID = a.ID
			continue
		}
		opening[a.ID] = a.OpeningBalance
	}
	return opening, debtOpening, virtualID
}
