package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

const statsCacheKey = "dashboard"

// dashboardStats assembles the aggregate view, recomputing at most once per
// cache window. Loading the dashboard is also what pins the daily net-worth
// sample once the record hour has passed.
func (s *Server) dashboardStats(ctx context.Context) (core.DashboardStats, error) {
	if cached, ok := s.statsCache.Get(statsCacheKey); ok {
		return cached, nil
	}

	if _, recorded, err := s.recalc.RecordNetWorth(ctx, time.Now(), s.recordAfterHour, false); err != nil {
		slog.WarnContext(ctx, "Auto-record of net worth failed", "error", err)
	} else if recorded {
		slog.InfoContext(ctx, "Auto-recorded today's net worth sample")
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("load accounts: %w", err)
	}

	total := decimal.Zero
	for _, a := range accounts {
		if a.IncludeInNetWorth {
			total = total.Add(a.Balance)
		}
	}

	now := time.Now()
	monthStart := core.NewDate(now.Year(), int(now.Month()), 1)
	monthEnd := core.NewDate(now.Year(), int(now.Month()), daysInMonth(now.Year(), int(now.Month())))

	income, err := s.store.SumByKind(ctx, core.Income, monthStart, monthEnd)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("sum income: %w", err)
	}
	expense, err := s.store.SumByKind(ctx, core.Expense, monthStart, monthEnd)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("sum expenses: %w", err)
	}
	// borrowed money is spending this month even though no account moved
	borrowed, err := s.store.SumBorrowings(ctx, monthStart, monthEnd)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("sum borrowings: %w", err)
	}
	spending := expense.Add(borrowed)

	breakdown, err := s.store.CategoryBreakdown(ctx, monthStart, monthEnd, 10)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("category breakdown: %w", err)
	}
	history, err := s.store.NetWorthHistory(ctx, s.epoch)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("net worth history: %w", err)
	}
	monthly, err := s.store.MonthlySpend(ctx, 12)
	if err != nil {
		return core.DashboardStats{}, fmt.Errorf("monthly spend: %w", err)
	}

	average := decimal.Zero
	if len(monthly) > 0 {
		sum := decimal.Zero
		for _, m := range monthly {
			sum = sum.Add(m.Spending)
		}
		average = sum.Div(decimal.NewFromInt(int64(len(monthly))))
	}

	stats := core.DashboardStats{
		TotalBalance:      total,
		MonthlyIncome:     income,
		MonthlyExpense:    spending,
		MonthlyNet:        income.Sub(spending),
		CategoryBreakdown: breakdown,
		NetWorthHistory:   history,
		MonthlySpend:      monthly,
		AverageSpend:      average,
	}
	s.statsCache.Set(statsCacheKey, stats)
	return stats, nil
}

type categoryAmountResponse struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type monthSpendResponse struct {
	Month    string          `json:"month"`
	Spending decimal.Decimal `json:"spending"`
}

type netWorthSampleResponse struct {
	Date     string          `json:"date"`
	NetWorth decimal.Decimal `json:"net_worth"`
}

type dashboardStatsResponse struct {
	TotalBalance      decimal.Decimal          `json:"total_balance"`
	MonthlyIncome     decimal.Decimal          `json:"monthly_income"`
	MonthlyExpense    decimal.Decimal          `json:"monthly_expense"`
	MonthlyNet        decimal.Decimal          `json:"monthly_net"`
	CategoryBreakdown []categoryAmountResponse `json:"category_breakdown"`
	NetWorthHistory   []netWorthSampleResponse `json:"net_worth_history"`
	MonthlySpend      []monthSpendResponse     `json:"monthly_spend"`
	AverageSpend      decimal.Decimal          `json:"average_spend"`
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	stats, err := s.dashboardStats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed assembling dashboard stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}

	resp := dashboardStatsResponse{
		TotalBalance:   stats.TotalBalance,
		MonthlyIncome:  stats.MonthlyIncome,
		MonthlyExpense: stats.MonthlyExpense,
		MonthlyNet:     stats.MonthlyNet,
		AverageSpend:   stats.AverageSpend,
	}
	for _, c := range stats.CategoryBreakdown {
		resp.CategoryBreakdown = append(resp.CategoryBreakdown, categoryAmountResponse{Category: c.Category, Amount: c.Amount})
	}
	for _, h := range stats.NetWorthHistory {
		resp.NetWorthHistory = append(resp.NetWorthHistory, netWorthSampleResponse{Date: h.Date.Key(), NetWorth: h.NetWorth})
	}
	for _, m := range stats.MonthlySpend {
		resp.MonthlySpend = append(resp.MonthlySpend, monthSpendResponse{Month: m.Month, Spending: m.Spending})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNetWorthHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	from := s.epoch
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
		from = parsed
	}

	history, err := s.store.NetWorthHistory(r.Context(), from)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load net worth history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	out := make([]netWorthSampleResponse, 0, len(history))
	for _, h := range history {
		out = append(out, netWorthSampleResponse{Date: h.Date.Key(), NetWorth: h.NetWorth})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNetWorthRecord forces today's sample, overwriting an auto-recorded
// one.
func (s *Server) handleNetWorthRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	sample, _, err := s.recalc.RecordNetWorth(r.Context(), time.Now(), s.recordAfterHour, true)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to record net worth", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record net worth")
		return
	}
	s.invalidateStats()

	writeJSON(w, http.StatusOK, netWorthSampleResponse{Date: sample.Date.Key(), NetWorth: sample.NetWorth})
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	balances, err := s.recalc.Recalculate(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Manual recalculation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "recalculation failed")
		return
	}
	s.invalidateStats()

	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":   len(balances.Accounts),
		"debt_total": balances.DebtTotal(),
	})
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dashboardView formats stats for the HTML partial.
type dashboardViewData struct {
	TotalBalance   string
	MonthlyIncome  string
	MonthlyExpense string
	MonthlyNet     string
	AverageSpend   string
	Breakdown      []struct{ Category, Amount string }
	LatestNetWorth string
}

func dashboardView(stats core.DashboardStats) dashboardViewData {
	v := dashboardViewData{
		TotalBalance:   core.FormatAmount(stats.TotalBalance),
		MonthlyIncome:  core.FormatAmount(stats.MonthlyIncome),
		MonthlyExpense: core.FormatAmount(stats.MonthlyExpense),
		MonthlyNet:     core.FormatAmount(stats.MonthlyNet),
		AverageSpend:   core.FormatAmount(stats.AverageSpend),
	}
	for _, c := range stats.CategoryBreakdown {
		v.Breakdown = append(v.Breakdown, struct{ Category, Amount string }{c.Category, core.FormatAmount(c.Amount)})
	}
	if n := len(stats.NetWorthHistory); n > 0 {
		v.LatestNetWorth = core.FormatAmount(stats.NetWorthHistory[n-1].NetWorth)
	}
	return v
}
