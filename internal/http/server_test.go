package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/memory"
	"kosh/internal/services"
)

var testEpoch = core.NewDate(2023, 12, 17)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	recalc := services.NewRecalcService(st, testEpoch)
	txns := services.NewTransactionService(st, nil, recalc)
	// record hour 0 so dashboard loads always auto-record
	s := NewServer(":0", st, txns, recalc, testEpoch, 0)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, st
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createAccount(t *testing.T, s *Server, name, accountType, opening string) accountResponse {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name":            name,
		"type":            accountType,
		"opening_balance": opening,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account %s: status %d body %s", name, rec.Code, rec.Body.String())
	}
	return decodeBody[accountResponse](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestAccountsAPI(t *testing.T) {
	s, _ := newTestServer(t)

	created := createAccount(t, s, "Checking", "bank", "100.50")
	if created.ID == 0 || !created.OpeningBalance.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("unexpected created account: %+v", created)
	}

	// duplicate name
	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Checking", "type": "bank",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate account status = %d, want 409", rec.Code)
	}

	// the virtual ledger type is reserved
	rec = doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Sneaky", "type": "debt",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("debt account status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list accounts status = %d", rec.Code)
	}
	accounts := decodeBody[[]accountResponse](t, rec)
	// seeded Debt ledger + Checking
	if len(accounts) != 2 {
		t.Errorf("accounts = %d, want 2", len(accounts))
	}
}

func TestCategoriesAPI(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/categories", map[string]any{"name": "Food"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/categories", map[string]any{"name": ""})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty category status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/categories", nil)
	cats := decodeBody[[]categoryResponse](t, rec)
	if len(cats) != 1 || cats[0].Name != "Food" {
		t.Errorf("categories = %+v, want just Food", cats)
	}
}

func TestTransactionsAPI(t *testing.T) {
	s, _ := newTestServer(t)
	checking := createAccount(t, s, "Checking", "bank", "100")

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date":              "2024-01-02",
		"name":              "Salary",
		"amount":            "50",
		"type":              "income",
		"income_account_id": checking.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionResponse](t, rec)
	if created.ID == 0 || created.Type != "income" {
		t.Errorf("unexpected transaction: %+v", created)
	}

	// without AMQP the recalc runs inline, so the balance moved
	rec = doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	for _, a := range decodeBody[[]accountResponse](t, rec) {
		if a.ID == checking.ID && !a.Balance.Equal(decimal.RequireFromString("150")) {
			t.Errorf("checking balance = %s, want 150", a.Balance)
		}
	}

	// kind/leg mismatch is rejected
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date":               "2024-01-02",
		"name":               "Mismatch",
		"amount":             "10",
		"type":               "income",
		"expense_account_id": checking.ID,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("mismatched legs status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?type=income&limit=10", nil)
	rows := decodeBody[[]transactionResponse](t, rec)
	if len(rows) != 1 || rows[0].IncomeAccountName != "Checking" {
		t.Errorf("filtered list = %+v, want one income row with joined name", rows)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus type filter status = %d, want 400", rec.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	s, _ := newTestServer(t)
	checking := createAccount(t, s, "Checking", "bank", "100")

	today := core.Today().Key()
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": today, "name": "Pay", "amount": "200", "type": "income",
		"income_account_id": checking.ID,
	})
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": today, "name": "Food", "amount": "50", "type": "expense",
		"expense_account_id": checking.ID,
	})
	// borrowing counts as spending without touching an account
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": today, "name": "Alex fronted dinner", "amount": "25", "type": "debt",
		"debt_type": "borrowing",
	})

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d body %s", rec.Code, rec.Body.String())
	}
	stats := decodeBody[dashboardStatsResponse](t, rec)

	if !stats.MonthlyIncome.Equal(decimal.RequireFromString("200")) {
		t.Errorf("monthly income = %s, want 200", stats.MonthlyIncome)
	}
	if !stats.MonthlyExpense.Equal(decimal.RequireFromString("75")) {
		t.Errorf("monthly expense = %s, want 75 (expense + borrowing)", stats.MonthlyExpense)
	}
	if !stats.MonthlyNet.Equal(decimal.RequireFromString("125")) {
		t.Errorf("monthly net = %s, want 125", stats.MonthlyNet)
	}
	// 100 opening + 200 - 50 cash, -25 owed on the debt ledger
	if !stats.TotalBalance.Equal(decimal.RequireFromString("225")) {
		t.Errorf("total balance = %s, want 225", stats.TotalBalance)
	}
	// record hour 0: loading the dashboard pinned today's sample
	if len(stats.NetWorthHistory) != 1 {
		t.Errorf("net worth history = %d samples, want 1 auto-recorded", len(stats.NetWorthHistory))
	}
}

func TestNetWorthRecordAndHistory(t *testing.T) {
	s, _ := newTestServer(t)
	createAccount(t, s, "Checking", "bank", "100")

	rec := doJSON(t, s, http.MethodPost, "/api/networth/record", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("record status = %d body %s", rec.Code, rec.Body.String())
	}
	sample := decodeBody[netWorthSampleResponse](t, rec)
	if !sample.NetWorth.Equal(decimal.RequireFromString("100")) {
		t.Errorf("recorded net worth = %s, want 100", sample.NetWorth)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/networth/history", nil)
	history := decodeBody[[]netWorthSampleResponse](t, rec)
	if len(history) != 1 {
		t.Fatalf("history = %d samples, want 1", len(history))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/networth/history?from=2999-01-01", nil)
	if got := decodeBody[[]netWorthSampleResponse](t, rec); len(got) != 0 {
		t.Errorf("future-from history = %d samples, want 0", len(got))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/networth/history?from=nonsense", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d, want 400", rec.Code)
	}
}

func TestInvestmentsAPI(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Brokerage", "type": "investment", "opening_balance": "1000",
		"show_in_investments": true,
	})
	brokerage := decodeBody[accountResponse](t, rec)
	checking := createAccount(t, s, "Checking", "bank", "0")

	rec = doJSON(t, s, http.MethodGet, "/api/investments", nil)
	investments := decodeBody[[]accountResponse](t, rec)
	if len(investments) != 1 || investments[0].ID != brokerage.ID {
		t.Fatalf("investments = %+v, want just Brokerage", investments)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/investments/update", map[string]any{
		"account_id": brokerage.ID, "value": "1100.25",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[accountResponse](t, rec)
	if !updated.Balance.Equal(decimal.RequireFromString("1100.25")) {
		t.Errorf("updated balance = %s, want 1100.25", updated.Balance)
	}

	// non-investment accounts are off limits
	rec = doJSON(t, s, http.MethodPost, "/api/investments/update", map[string]any{
		"account_id": checking.ID, "value": "1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-investment update status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/investments/update", map[string]any{
		"account_id": 9999, "value": "1",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing account update status = %d, want 404", rec.Code)
	}
}

func TestRecalculateEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	checking := createAccount(t, s, "Checking", "bank", "100")
	doJSON(t, s, http.MethodPost, "/api/transactions", map[string]any{
		"date": "2024-01-02", "name": "Pay", "amount": "50", "type": "income",
		"income_account_id": checking.ID,
	})

	rec := doJSON(t, s, http.MethodPost, "/api/recalculate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recalculate status = %d body %s", rec.Code, rec.Body.String())
	}
	if rec2 := doJSON(t, s, http.MethodGet, "/api/recalculate", nil); rec2.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET recalculate status = %d, want 405", rec2.Code)
	}
}

func TestTransactionFormHTMX(t *testing.T) {
	s, _ := newTestServer(t)
	checking := createAccount(t, s, "Checking", "bank", "100")

	form := url.Values{}
	form.Set("date", "2024-01-02")
	form.Set("name", "Groceries")
	form.Set("amount", "42,50")
	form.Set("type", "expense")
	form.Set("expense_account_id", strconv.FormatInt(checking.ID, 10))
	form.Set("expense_instrument", "Debit Card")

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("form post status = %d body %s", rec.Code, rec.Body.String())
	}
	trigger := rec.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "transaction:created") || !strings.Contains(trigger, "form:reset") {
		t.Errorf("HX-Trigger = %q, want transaction:created and form:reset", trigger)
	}

	// bad amount renders an inline error
	form.Set("amount", "zero")
	req = httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad amount status = %d, want 422", rec.Code)
	}
}

func TestIndexAndDashboardPartial(t *testing.T) {
	s, _ := newTestServer(t)
	createAccount(t, s, "Checking", "bank", "100")

	rec := doJSON(t, s, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Checking") {
		t.Error("index should list accounts in the entry form")
	}

	rec = doJSON(t, s, http.MethodGet, "/ui/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard partial status = %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "100.00") {
		t.Errorf("dashboard partial should show the total balance, got %s", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}
