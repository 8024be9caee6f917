package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2023-12-17")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2023-12-17" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("17/12/2023"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := ParseDate(""); err == nil {
		t.Fatalf("expected error for empty date")
	}
}

func TestDateFromSerial(t *testing.T) {
	// 45277 is 2023-12-17 in sheet serial days.
	cases := []struct {
		serial float64
		want   string
	}{
		{45277, "2023-12-17"},
		{25569, "1970-01-01"},
		{45292, "2024-01-01"},
	}
	for _, tc := range cases {
		if got := DateFromSerial(tc.serial).String(); got != tc.want {
			t.Fatalf("serial %v: got %s, want %s", tc.serial, got, tc.want)
		}
	}
}

func TestParseDebtKind(t *testing.T) {
	cases := []struct {
		in   string
		want DebtKind
		ok   bool
	}{
		{"lending", Lending, true},
		{"Borrowing", Borrowing, true},
		{"paying", Paying, true},
		{"sending", Paying, true}, // legacy spreadsheet alias
		{"receiving", Receiving, true},
		{"gifting", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDebtKind(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got (%q, %v), want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	date := NewDate(2024, 3, 1)
	amount := dec("100")

	good := []Transaction{
		NewIncome(date, "salary", amount, 1),
		NewExpense(date, "groceries", amount, 1),
		NewTransfer(date, "to savings", amount, 1, 2),
		NewDebt(date, "lunch for Ravi", amount, Lending, 1, "Ravi"),
		NewDebt(date, "borrowed", amount, Borrowing, 0, "Ravi"),
	}
	for i, tx := range good {
		if err := tx.Validate(); err != nil {
			t.Fatalf("good case %d: %v", i, err)
		}
	}

	bad := []struct {
		tx   Transaction
		want error
	}{
		{NewIncome(Date{}, "x", amount, 1), ErrInvalidDate},
		{NewIncome(date, "", amount, 1), ErrEmptyName},
		{NewIncome(date, "x", dec("0"), 1), ErrInvalidAmount},
		{NewIncome(date, "x", dec("-5"), 1), ErrInvalidAmount},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: "loan"}, ErrUnknownKind},
		{NewTransfer(date, "x", amount, 3, 3), ErrSameAccount},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: Income}, ErrKindMismatch},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: Expense, ExpenseAccountID: 1, IncomeAccountID: 2}, ErrKindMismatch},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: Transfer, OutflowAccountID: 1}, ErrKindMismatch},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: Debt, InvolvedAccountID: 1}, ErrUnknownDebtKind},
		{Transaction{Date: date, Name: "x", Amount: amount, Kind: Debt, DebtKind: Lending, OutflowAccountID: 2}, ErrKindMismatch},
	}
	for i, tc := range bad {
		err := tc.tx.Validate()
		if err == nil {
			t.Fatalf("bad case %d: expected error", i)
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("bad case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	good := Account{Name: "HDFC", Type: Bank}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Name: "", Type: Bank}).Validate(); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if err := (Account{Name: "x", Type: "wallet"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
