package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
	"kosh/internal/store"
)

type transactionResponse struct {
	ID                  int64           `json:"id"`
	Date                string          `json:"date"`
	Name                string          `json:"name"`
	Amount              decimal.Decimal `json:"amount"`
	Type                string          `json:"type"`
	CategoryID          int64           `json:"category_id,omitempty"`
	CategoryName        string          `json:"category_name,omitempty"`
	IncomeAccountName   string          `json:"income_account_name,omitempty"`
	ExpenseAccountName  string          `json:"expense_account_name,omitempty"`
	ExpenseInstrument   string          `json:"expense_instrument,omitempty"`
	OutflowAccountName  string          `json:"outflow_account_name,omitempty"`
	InflowAccountName   string          `json:"inflow_account_name,omitempty"`
	DebtType            string          `json:"debt_type,omitempty"`
	InvolvedAccountName string          `json:"involved_account_name,omitempty"`
	Counterparty        string          `json:"counterparty,omitempty"`
	IsRefund            bool            `json:"is_refund,omitempty"`
	Notes               string          `json:"notes,omitempty"`
}

func toTransactionResponse(d store.TransactionDetails) transactionResponse {
	return transactionResponse{
		ID:                  d.ID,
		Date:                d.Date.Key(),
		Name:                d.Name,
		Amount:              d.Amount,
		Type:                string(d.Kind),
		CategoryID:          d.CategoryID,
		CategoryName:        d.CategoryName,
		IncomeAccountName:   d.IncomeAccountName,
		ExpenseAccountName:  d.ExpenseAccountName,
		ExpenseInstrument:   d.ExpenseInstrument,
		OutflowAccountName:  d.OutflowAccountName,
		InflowAccountName:   d.InflowAccountName,
		DebtType:            string(d.DebtKind),
		InvolvedAccountName: d.InvolvedAccountName,
		Counterparty:        d.Counterparty,
		IsRefund:            d.IsRefund,
		Notes:               d.Notes,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	filter := store.TransactionFilter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))); v != "" {
		kind := core.TransactionKind(v)
		if !kind.Valid() {
			writeError(w, http.StatusBadRequest, "invalid transaction type")
			return
		}
		filter.Kind = kind
	}

	rows, err := s.txns.List(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(rows))
	for _, d := range rows {
		out = append(out, toTransactionResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := req.ToTransaction()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.txns.Create(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		writeError(w, statusForError(err), "failed to create transaction")
		return
	}
	s.invalidateStats()

	writeJSON(w, http.StatusCreated, transactionResponse{
		ID:     saved.ID,
		Date:   saved.Date.Key(),
		Name:   saved.Name,
		Amount: saved.Amount,
		Type:   string(saved.Kind),
	})
}

// handleTransactionForm is the HTMX endpoint behind the entry form on the
// index page.
func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err)
		HTMXError(http.StatusBadRequest, "invalid form").Write(w)
		return
	}

	req := TransactionRequestFromForm(r.Form)
	t, err := req.ToTransaction()
	if err != nil {
		HTMXError(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}

	saved, err := s.txns.Create(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create transaction", "error", err)
		HTMXError(http.StatusInternalServerError, "failed to save transaction").Write(w)
		return
	}
	s.invalidateStats()

	msg := fmt.Sprintf("Recorded %s: %s (%s)",
		template.HTMLEscapeString(string(saved.Kind)),
		template.HTMLEscapeString(saved.Name),
		core.FormatAmount(saved.Amount))

	NewHTMXResponse().
		TriggerTransactionCreated(saved.ID).
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		Write(w)
}
