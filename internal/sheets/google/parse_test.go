package google

import (
	"testing"

	"kosh/internal/core"
)

func row(cells ...interface{}) []interface{} { return cells }

func TestParseRawFlows(t *testing.T) {
	values := [][]interface{}{
		row("Date", "Name", "Amount", "Type", "Category", "Income Account", "Expense Account", "Expense Instrument", "Outflow Account", "Inflow Account", "Involved Account", "Debt Type", "Benki?", "Notes"),
		row(float64(45280), "Salary", float64(2500), "Income", "Work", "Checking", "", "", "", "", "", "", "", ""),
		row("2024-01-05", "Groceries", "42,50", "Expense", "Food", "", "Checking", "Debit Card", "", "", "", "", "Yes", "weekly shop"),
		row("", "", "", "", "", "", "", "", "", "", "", "", "", ""),
		row(float64(45300), "Loan to Sam", float64(30), "Debt", "", "", "", "", "", "", "Checking", "Lending", "", ""),
	}

	rows, err := parseRawFlows(values)
	if err != nil {
		t.Fatalf("parseRawFlows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("parseRawFlows() returned %d rows, want 3 (blank row skipped)", len(rows))
	}

	first := rows[0]
	if first.Row != 2 {
		t.Errorf("first row number = %d, want 2", first.Row)
	}
	want := core.DateFromSerial(45280)
	if !first.Date.Equal(want.Time) {
		t.Errorf("serial date = %s, want %s", first.Date, want)
	}
	if first.Kind != "income" || first.IncomeAccount != "Checking" || first.Amount != "2500" {
		t.Errorf("unexpected income row: %+v", first)
	}

	second := rows[1]
	if second.Date.Key() != "2024-01-05" {
		t.Errorf("string date = %s, want 2024-01-05", second.Date)
	}
	if !second.Refund {
		t.Error("Benki?=Yes should mark the row as a refund")
	}
	if second.ExpenseInstrument != "Debit Card" || second.Notes != "weekly shop" {
		t.Errorf("unexpected expense row: %+v", second)
	}

	third := rows[2]
	if third.Kind != "debt" || third.DebtKind != "lending" || third.InvolvedAccount != "Checking" {
		t.Errorf("unexpected debt row: %+v", third)
	}
}

func TestParseRawFlowsBadDate(t *testing.T) {
	values := [][]interface{}{
		row("Date", "Name", "Amount", "Type", "Expense Account"),
		row("2024-01-05", "Groceries", "10", "Expense", "Checking"),
		row("not-a-date", "Oops", "1", "Expense", "Checking"),
		row("2024-01-06", "Coffee", "3", "Expense", "Checking"),
	}

	rows, err := parseRawFlows(values)
	if err != nil {
		t.Fatalf("parseRawFlows() error = %v, a bad date must not abort the batch", err)
	}
	if len(rows) != 3 {
		t.Fatalf("parseRawFlows() returned %d rows, want all 3", len(rows))
	}

	bad := rows[1]
	if !bad.Date.IsZero() || bad.DateRaw != "not-a-date" || bad.Row != 3 {
		t.Errorf("bad-date row = %+v, want zero date with raw cell kept", bad)
	}
	if rows[0].Date.IsZero() || rows[2].Date.IsZero() {
		t.Error("good rows around the bad one should parse normally")
	}
}

func TestParseRawFlowsMissingDateColumn(t *testing.T) {
	values := [][]interface{}{
		row("Name", "Amount"),
		row("Oops", "1"),
	}
	if _, err := parseRawFlows(values); err == nil {
		t.Error("parseRawFlows() should require a Date column")
	}
}

func TestParseValuations(t *testing.T) {
	values := [][]interface{}{
		row("Date", "Account", "Value"),
		row("2024-02-01", "Brokerage", float64(10432.55)),
		row(float64(45323), "Mutual Fund", "9800"),
	}

	rows, err := parseValuations(values)
	if err != nil {
		t.Fatalf("parseValuations() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("parseValuations() returned %d rows, want 2", len(rows))
	}
	if rows[0].Account != "Brokerage" || rows[0].Value != "10432.55" {
		t.Errorf("unexpected valuation row: %+v", rows[0])
	}
	if rows[1].Date.Key() != "2024-02-01" {
		t.Errorf("serial valuation date = %s, want 2024-02-01", rows[1].Date)
	}
}

func TestParseValuationsBadDate(t *testing.T) {
	values := [][]interface{}{
		row("Date", "Account", "Value"),
		row("someday", "Brokerage", "100"),
		row("2024-02-01", "Brokerage", "200"),
	}

	rows, err := parseValuations(values)
	if err != nil {
		t.Fatalf("parseValuations() error = %v, a bad date must not abort the batch", err)
	}
	if len(rows) != 2 {
		t.Fatalf("parseValuations() returned %d rows, want 2", len(rows))
	}
	if !rows[0].Date.IsZero() || rows[0].DateRaw != "someday" {
		t.Errorf("bad-date row = %+v, want zero date with raw cell kept", rows[0])
	}
}

func TestParseValuationsMissingColumns(t *testing.T) {
	values := [][]interface{}{
		row("Date", "Value"),
	}
	if _, err := parseValuations(values); err == nil {
		t.Error("parseValuations() should require the Account column")
	}
}
