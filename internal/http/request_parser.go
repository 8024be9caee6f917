package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"kosh/internal/core"
)

// TransactionRequest is the wire shape shared by the JSON endpoint and the
// HTMX form. Amount is a string so "42,50" style entry survives transport.
type TransactionRequest struct {
	Date              string `json:"date"`
	Name              string `json:"name"`
	Amount            string `json:"amount"`
	Type              string `json:"type"`
	CategoryID        int64  `json:"category_id,omitempty"`
	IncomeAccountID   int64  `json:"income_account_id,omitempty"`
	ExpenseAccountID  int64  `json:"expense_account_id,omitempty"`
	ExpenseInstrument string `json:"expense_instrument,omitempty"`
	OutflowAccountID  int64  `json:"outflow_account_id,omitempty"`
	InflowAccountID   int64  `json:"inflow_account_id,omitempty"`
	DebtType          string `json:"debt_type,omitempty"`
	InvolvedAccountID int64  `json:"involved_account_id,omitempty"`
	Counterparty      string `json:"counterparty,omitempty"`
	IsRefund          bool   `json:"is_refund,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// TransactionRequestFromForm reads the HTMX form fields into the shared
// request shape.
func TransactionRequestFromForm(form url.Values) TransactionRequest {
	return TransactionRequest{
		Date:              strings.TrimSpace(form.Get("date")),
		Name:              sanitizeInput(form.Get("name")),
		Amount:            strings.TrimSpace(form.Get("amount")),
		Type:              strings.ToLower(strings.TrimSpace(form.Get("type"))),
		CategoryID:        formID(form, "category_id"),
		IncomeAccountID:   formID(form, "income_account_id"),
		ExpenseAccountID:  formID(form, "expense_account_id"),
		ExpenseInstrument: sanitizeInput(form.Get("expense_instrument")),
		OutflowAccountID:  formID(form, "outflow_account_id"),
		InflowAccountID:   formID(form, "inflow_account_id"),
		DebtType:          strings.TrimSpace(form.Get("debt_type")),
		InvolvedAccountID: formID(form, "involved_account_id"),
		Counterparty:      sanitizeInput(form.Get("counterparty")),
		IsRefund:          form.Get("is_refund") == "on" || form.Get("is_refund") == "true",
		Notes:             sanitizeInput(form.Get("notes")),
	}
}

// ToTransaction validates the request and builds the domain transaction.
func (req TransactionRequest) ToTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", req.Date, err)
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", req.Amount, err)
	}

	var t core.Transaction
	switch core.TransactionKind(strings.ToLower(req.Type)) {
	case core.Income:
		t = core.NewIncome(date, req.Name, amount, req.IncomeAccountID)
	case core.Expense:
		t = core.NewExpense(date, req.Name, amount, req.ExpenseAccountID)
		t.ExpenseInstrument = req.ExpenseInstrument
		t.IsRefund = req.IsRefund
	case core.Transfer:
		t = core.NewTransfer(date, req.Name, amount, req.OutflowAccountID, req.InflowAccountID)
	case core.Debt:
		debtKind, err := core.ParseDebtKind(req.DebtType)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("debt type %q: %w", req.DebtType, err)
		}
		counterparty := req.Counterparty
		if counterparty == "" {
			counterparty = req.Name
		}
		t = core.NewDebt(date, req.Name, amount, debtKind, req.InvolvedAccountID, counterparty)
	default:
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrUnknownKind, req.Type)
	}

	t.CategoryID = req.CategoryID
	t.Notes = req.Notes
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func formID(form url.Values, key string) int64 {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return 0
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
