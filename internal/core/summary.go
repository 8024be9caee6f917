package core

import "github.com/shopspring/decimal"

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// MonthSpend is one month's total spending, month formatted YYYY-MM.
type MonthSpend struct {
	Month    string
	Spending decimal.Decimal
}

// DashboardStats is the aggregate view the dashboard renders.
type DashboardStats struct {
	TotalBalance      decimal.Decimal
	MonthlyIncome     decimal.Decimal
	MonthlyExpense    decimal.Decimal
	MonthlyNet        decimal.Decimal
	CategoryBreakdown []CategoryAmount
	NetWorthHistory   []NetWorthSample
	MonthlySpend      []MonthSpend
	AverageSpend      decimal.Decimal
}
