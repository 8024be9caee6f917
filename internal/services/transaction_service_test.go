package services

import (
	"context"
	"errors"
	"testing"

	"kosh/internal/core"
	"kosh/internal/memory"
	"kosh/internal/store"
)

func TestTransactionServiceCreateRecalculatesInline(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")

	svc := NewTransactionService(st, nil, NewRecalcService(st, testEpoch))

	saved, err := svc.Create(ctx, core.NewIncome(core.NewDate(2024, 1, 2), "Salary", dec(t, "50"), checking.ID))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if saved.ID == 0 {
		t.Error("Create() should assign an id")
	}

	// no AMQP configured, so the recalc ran inline
	if got := findAccount(t, st, checking.ID).Balance; !got.Equal(dec(t, "150")) {
		t.Errorf("balance after create = %s, want 150", got)
	}
}

func TestTransactionServiceCreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "100")
	svc := NewTransactionService(st, nil, NewRecalcService(st, testEpoch))

	bad := core.NewTransfer(core.NewDate(2024, 1, 2), "Loop", dec(t, "10"), checking.ID, checking.ID)
	if _, err := svc.Create(ctx, bad); !errors.Is(err, core.ErrSameAccount) {
		t.Errorf("Create() error = %v, want ErrSameAccount", err)
	}

	missingDate := core.NewIncome(core.Date{}, "No date", dec(t, "10"), checking.ID)
	if _, err := svc.Create(ctx, missingDate); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("Create() error = %v, want ErrInvalidDate", err)
	}

	if txns, _ := st.ListTransactions(ctx, store.TransactionFilter{}); len(txns) != 0 {
		t.Errorf("invalid transactions must not be stored, got %d", len(txns))
	}
}

func TestTransactionServiceList(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	checking := seedAccount(t, st, "Checking", "0")
	svc := NewTransactionService(st, nil, NewRecalcService(st, testEpoch))

	for _, name := range []string{"One", "Two", "Three"} {
		if _, err := svc.Create(ctx, core.NewExpense(core.NewDate(2024, 1, 2), name, dec(t, "1"), checking.ID)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Create(ctx, core.NewIncome(core.NewDate(2024, 1, 3), "Pay", dec(t, "10"), checking.ID)); err != nil {
		t.Fatal(err)
	}

	expenses, err := svc.List(ctx, store.TransactionFilter{Kind: core.Expense})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("filtered list = %d rows, want 3", len(expenses))
	}

	page, err := svc.List(ctx, store.TransactionFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page = %d rows, want 2", len(page))
	}
	// newest first: the income sorts above the same-day expenses
	if page[0].Kind != core.Expense {
		t.Errorf("second row kind = %s, want expense", page[0].Kind)
	}
}
