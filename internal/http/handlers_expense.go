package http

import (
	"net/http"
	"time"

	"spendlog/internal/core"
)

type createExpenseRequest struct {
	Title       string   `json:"title"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	expenses, err := s.ledger.ListExpenses(r.Context(), ownerID, r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		date = parsed
	}

	expense, err := s.ledger.CreateExpense(r.Context(), ownerID, core.ExpenseDraft{
		Title:       req.Title,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	if err := s.ledger.DeleteExpense(r.Context(), ownerID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleStar(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	expense, err := s.ledger.ToggleStar(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleListStarred(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	expenses, err := s.ledger.ListStarred(r.Context(), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerIDFromContext(r.Context())

	totals, err := s.ledger.Summary(r.Context(), ownerID, r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if totals == nil {
		totals = []core.CategoryTotal{}
	}

	writeJSON(w, http.StatusOK, totals)
}
