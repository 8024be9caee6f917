package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"kosh/internal/core"
)

type accountResponse struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Balance           decimal.Decimal `json:"balance"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	IsVirtual         bool            `json:"is_virtual"`
	IncludeInNetWorth bool            `json:"include_in_net_worth"`
	ShowInInvestments bool            `json:"show_in_investments"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:                a.ID,
		Name:              a.Name,
		Type:              string(a.Type),
		Balance:           a.Balance,
		OpeningBalance:    a.OpeningBalance,
		IsVirtual:         a.IsVirtual,
		IncludeInNetWorth: a.IncludeInNetWorth,
		ShowInInvestments: a.ShowInInvestments,
	}
}

type createAccountRequest struct {
	Name              string `json:"name"`
	Type              string `json:"type"`
	OpeningBalance    string `json:"opening_balance"`
	IncludeInNetWorth *bool  `json:"include_in_net_worth"`
	ShowInInvestments bool   `json:"show_in_investments"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAccounts(w, r)
	case http.MethodPost:
		s.createAccount(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		parsed, err := core.ParseBalance(req.OpeningBalance)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid opening balance")
			return
		}
		opening = parsed
	}

	// the virtual debt row is seeded by migration and off limits
	accountType := core.AccountType(strings.ToLower(strings.TrimSpace(req.Type)))
	if accountType == core.DebtLedger {
		writeError(w, http.StatusUnprocessableEntity, "the debt ledger account cannot be created")
		return
	}

	includeInNetWorth := true
	if req.IncludeInNetWorth != nil {
		includeInNetWorth = *req.IncludeInNetWorth
	}

	account := core.Account{
		Name:              sanitizeInput(req.Name),
		Type:              accountType,
		Balance:           opening,
		OpeningBalance:    opening,
		IncludeInNetWorth: includeInNetWorth,
		ShowInInvestments: req.ShowInInvestments,
	}
	if err := account.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.CreateAccount(r.Context(), account)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create account", "name", account.Name, "error", err)
		writeError(w, statusForError(err), "failed to create account")
		return
	}
	s.invalidateStats()

	slog.InfoContext(r.Context(), "Created account",
		"id", saved.ID,
		"name", saved.Name,
		"type", string(saved.Type))

	writeJSON(w, http.StatusCreated, toAccountResponse(saved))
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listCategories(w, r)
	case http.MethodPost:
		s.createCategory(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{Name: sanitizeInput(req.Name), Type: strings.TrimSpace(req.Type)}
	if err := category.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.store.CreateCategory(r.Context(), category)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create category", "name", category.Name, "error", err)
		writeError(w, statusForError(err), "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, categoryResponse{ID: saved.ID, Name: saved.Name, Type: saved.Type})
}

type investmentUpdateRequest struct {
	AccountID int64  `json:"account_id"`
	Value     string `json:"value"`
}

// handleInvestments lists the accounts flagged for the investments view.
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	accounts, err := s.store.ListAccounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list investments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list investments")
		return
	}

	out := make([]accountResponse, 0)
	for _, a := range accounts {
		if a.ShowInInvestments {
			out = append(out, toAccountResponse(a))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleInvestmentUpdate replaces one investment account's balance with a
// mark-to-market value. It is the only write that bypasses recalculation:
// market movements have no transaction to replay.
func (s *Server) handleInvestmentUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req investmentUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	value, err := core.ParseBalance(req.Value)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid value")
		return
	}

	account, err := s.store.GetAccount(r.Context(), req.AccountID)
	if err != nil {
		writeError(w, statusForError(err), "account not found")
		return
	}
	if !account.ShowInInvestments {
		writeError(w, http.StatusUnprocessableEntity, "account is not an investment")
		return
	}

	if err := s.store.UpdateBalance(r.Context(), account.ID, value); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update investment value",
			"account_id", account.ID, "error", err)
		writeError(w, statusForError(err), "failed to update investment")
		return
	}
	s.invalidateStats()

	slog.InfoContext(r.Context(), "Updated investment value",
		"account_id", account.ID,
		"account_name", account.Name,
		"value", value.String())

	account.Balance = value
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}
