package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	"spendtrack/internal/filter"
)

// amountValue accepts the amount as a JSON number or as a string, so both
// 42.5 and "42,50" parse.
type amountValue string

func (a *amountValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountValue(s)
		return nil
	}
	*a = amountValue(data)
	return nil
}

type expenseRequest struct {
	Amount      amountValue `json:"amount"`
	Description string      `json:"description"`
	CategoryID  int64       `json:"category_id"`
	Tags        string      `json:"tags"`
	Date        string      `json:"date"`
}

type expensePayload struct {
	ID           int64   `json:"id"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description"`
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Tags         string  `json:"tags"`
	Date         string  `json:"date"`
	CreatedAt    string  `json:"created_at"`
}

type expenseListResponse struct {
	Expenses []expensePayload `json:"expenses"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func toExpensePayload(e core.Expense) expensePayload {
	return expensePayload{
		ID:           e.ID,
		Amount:       e.Amount.Amount(),
		Description:  e.Description,
		CategoryID:   e.CategoryID,
		CategoryName: e.CategoryName,
		Tags:         e.Tags,
		Date:         e.Date.Format("2006-01-02"),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

// parseExpenseRequest turns the payload into a domain expense; a non-nil
// error is always a client error.
func parseExpenseRequest(req expenseRequest, userID int64) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(string(req.Amount))
	if err != nil {
		return core.Expense{}, err
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Expense{}, core.ErrInvalidDate
	}

	e := core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Description: sanitizeInput(req.Description),
		CategoryID:  req.CategoryID,
		Tags:        sanitizeInput(req.Tags),
		Date:        core.Date{Time: date},
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	params := filter.FromQuery(r.URL.Query())

	expenses, total, err := s.expenses.ListExpenses(r.Context(), userID, params)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	page, pageSize := 1, filter.DefaultPageSize
	if params.Page != "" {
		page, _ = strconv.Atoi(params.Page)
	}
	if params.PageSize != "" {
		pageSize, _ = strconv.Atoi(params.PageSize)
	}

	payload := make([]expensePayload, 0, len(expenses))
	for _, e := range expenses {
		payload = append(payload, toExpensePayload(e))
	}
	writeJSON(w, http.StatusOK, expenseListResponse{
		Expenses: payload,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	expense, err := s.expenses.GetExpense(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpensePayload(expense))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := parseExpenseRequest(req, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpensePayload(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := parseExpenseRequest(req, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense.ID = id

	updated, err := s.expenses.UpdateExpense(r.Context(), expense)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpensePayload(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
