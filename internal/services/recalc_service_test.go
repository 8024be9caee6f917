package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/memory"
	"kosh/internal/sheets"
)

var testEpoch = core.NewDate(2023, 12, 17)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedAccount(t *testing.T, st *memory.Store, name string, opening string) core.Account {
	t.Helper()
	a, err := st.CreateAccount(context.Background(), core.Account{
		Name:              name,
		Type:              core.Bank,
		OpeningBalance:    dec(t, opening),
		IncludeInNetWorth: true,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	return a
}

func findAccount(t *testing.T, st *memory.Store, id int64) core.Account {
	t.Helper()
	a, err := st.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %d: %v", id, err)
	}
	return a
}

func virtualDebt(t *testing.T, st *memory.Store) core.Account {
	t.Helper()
	accounts, err := st.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	for _, a := range accounts {
		if a.IsVirtual {
			return a
		}
	}
	t.Fatal("no virtual debt account seeded")
	return core.Account{}
}

func TestRecalculateRewritesBalances(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	savings := seedAccount(t, st, "Savings", "0")

	mustCreate := func(tx core.Transaction) {
		t.Helper()
		if _, err := st.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create transaction: %v", err)
		}
	}
	mustCreate(core.NewIncome(core.NewDate(2024, 1, 2), "Salary", dec(t, "50"), checking.ID))
	mustCreate(core.NewExpense(core.NewDate(2024, 1, 3), "Groceries", dec(t, "20"), checking.ID))
	mustCreate(core.NewTransfer(core.NewDate(2024, 1, 4), "To savings", dec(t, "30"), checking.ID, savings.ID))
	mustCreate(core.NewDebt(core.NewDate(2024, 1, 5), "Loan to Sam", dec(t, "10"), core.Lending, checking.ID, "Sam"))

	svc := NewRecalcService(st, testEpoch)
	if _, err := svc.Recalculate(ctx); err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}

	if got := findAccount(t, st, checking.ID).Balance; !got.Equal(dec(t, "90")) {
		t.Errorf("checking balance = %s, want 90", got)
	}
	if got := findAccount(t, st, savings.ID).Balance; !got.Equal(dec(t, "30")) {
		t.Errorf("savings balance = %s, want 30", got)
	}
	if got := virtualDebt(t, st).Balance; !got.Equal(dec(t, "10")) {
		t.Errorf("debt ledger balance = %s, want 10", got)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	if _, err := st.CreateTransaction(ctx, core.NewIncome(core.NewDate(2024, 1, 2), "Salary", dec(t, "50"), checking.ID)); err != nil {
		t.Fatal(err)
	}

	svc := NewRecalcService(st, testEpoch)
	for i := 0; i < 3; i++ {
		if _, err := svc.Recalculate(ctx); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if got := findAccount(t, st, checking.ID).Balance; !got.Equal(dec(t, "150")) {
		t.Errorf("checking balance after repeated runs = %s, want 150", got)
	}
}

func TestRecordNetWorthRespectsRecordHour(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seedAccount(t, st, "Checking", "100")
	svc := NewRecalcService(st, testEpoch)

	morning := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, recorded, err := svc.RecordNetWorth(ctx, morning, 14, false); err != nil {
		t.Fatalf("RecordNetWorth() error = %v", err)
	} else if recorded {
		t.Error("should not record before the record hour")
	}

	afternoon := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	sample, recorded, err := svc.RecordNetWorth(ctx, afternoon, 14, false)
	if err != nil {
		t.Fatalf("RecordNetWorth() error = %v", err)
	}
	if !recorded {
		t.Fatal("should record after the record hour")
	}
	if !sample.NetWorth.Equal(dec(t, "100")) {
		t.Errorf("net worth = %s, want 100", sample.NetWorth)
	}

	// force bypasses the hour gate
	if _, recorded, err := svc.RecordNetWorth(ctx, morning, 14, true); err != nil || !recorded {
		t.Errorf("forced record = (%v, %v), want recorded", recorded, err)
	}
}

func TestRecordNetWorthFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	svc := NewRecalcService(st, testEpoch)

	afternoon := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	if _, _, err := svc.RecordNetWorth(ctx, afternoon, 14, false); err != nil {
		t.Fatal(err)
	}

	if _, err := st.CreateTransaction(ctx, core.NewIncome(core.NewDate(2024, 3, 1), "Bonus", dec(t, "500"), checking.ID)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.RecordNetWorth(ctx, afternoon, 14, false); err != nil {
		t.Fatal(err)
	}

	history, err := st.NetWorthHistory(ctx, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if !history[0].NetWorth.Equal(dec(t, "100")) {
		t.Errorf("recorded net worth = %s, want the first sample (100)", history[0].NetWorth)
	}
}

func TestBackfillReplacesHistory(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	brokerage, err := st.CreateAccount(ctx, core.Account{
		Name:              "Brokerage",
		Type:              core.Investment,
		OpeningBalance:    dec(t, "1000"),
		IncludeInNetWorth: true,
		ShowInInvestments: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.CreateTransaction(ctx, core.NewIncome(core.NewDate(2024, 1, 2), "Salary", dec(t, "50"), checking.ID)); err != nil {
		t.Fatal(err)
	}
	// stale sample that the backfill must replace
	if err := st.UpsertNetWorth(ctx, core.NetWorthSample{Date: core.NewDate(2024, 1, 1), NetWorth: dec(t, "999999")}); err != nil {
		t.Fatal(err)
	}

	svc := NewRecalcService(st, testEpoch)
	samples, err := svc.Backfill(ctx, []core.Valuation{
		{Date: core.NewDate(2024, 1, 2), AccountID: brokerage.ID, Value: dec(t, "1100")},
	})
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}

	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	// 100 + 50 income + 1100 valuation override
	if !samples[0].NetWorth.Equal(dec(t, "1250")) {
		t.Errorf("sample = %s, want 1250", samples[0].NetWorth)
	}

	history, err := st.NetWorthHistory(ctx, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1 (stale sample replaced)", len(history))
	}
}

func TestResolveValuations(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	brokerage := seedAccount(t, st, "Brokerage", "1000")
	svc := NewRecalcService(st, testEpoch)

	vals, err := svc.ResolveValuations(ctx, []sheets.ValuationRow{
		{Row: 2, Date: core.NewDate(2024, 2, 1), Account: " brokerage ", Value: "1100.50"},
		{Row: 3, Date: core.NewDate(2024, 2, 1), Account: "Ghost", Value: "5"},
		{Row: 4, DateRaw: "not-a-date", Account: "Brokerage", Value: "1200"},
		{Row: 5, Date: core.NewDate(2024, 2, 2), Account: "Brokerage", Value: "not a number"},
		{Row: 6, Date: core.NewDate(2024, 2, 3), Account: "Brokerage", Value: "1300"},
	})
	if err != nil {
		t.Fatalf("ResolveValuations() error = %v", err)
	}
	// Malformed rows are dropped, never fatal; the good rows survive.
	if len(vals) != 2 {
		t.Fatalf("resolved %d valuations, want 2 (bad rows dropped)", len(vals))
	}
	if vals[0].AccountID != brokerage.ID || !vals[0].Value.Equal(dec(t, "1100.50")) {
		t.Errorf("unexpected valuation: %+v", vals[0])
	}
	if !vals[1].Value.Equal(dec(t, "1300")) {
		t.Errorf("row after the bad ones = %+v, want value 1300", vals[1])
	}
}
