package http

import (
	"errors"
	"net/http"
	"strconv"

	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type categoryPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

type deleteCategoryResponse struct {
	Deleted         bool  `json:"deleted"`
	ExpensesRemoved int64 `json:"expenses_removed"`
}

type categoryConflictResponse struct {
	Error             string `json:"error"`
	DependentExpenses int64  `json:"dependent_expenses"`
	Hint              string `json:"hint"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payload := make([]categoryPayload, 0, len(categories))
	for _, c := range categories {
		payload = append(payload, categoryPayload{ID: c.ID, Name: c.Name})
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category := core.Category{Name: sanitizeInput(req.Name)}
	if err := category.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateCategory(r.Context(), category.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoryPayload{ID: created.ID, Name: created.Name})
}

// handleDeleteCategory deletes a category. A category that still has
// expenses is only removed when the caller passes confirm=true, because the
// delete cascades to those expenses.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	confirm := r.URL.Query().Get("confirm") == "true"
	removed, err := s.store.DeleteCategory(r.Context(), id, confirm)
	if errors.Is(err, storage.ErrCategoryInUse) {
		writeJSON(w, http.StatusConflict, categoryConflictResponse{
			Error:             "category has dependent expenses",
			DependentExpenses: removed,
			Hint:              "repeat the request with ?confirm=true to delete the category and its expenses",
		})
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The cascade may have deleted other users' expenses too; drop every
	// cached summary, not just this user's.
	if removed > 0 {
		s.summaries.InvalidateAll(r.Context())
	}

	writeJSON(w, http.StatusOK, deleteCategoryResponse{Deleted: true, ExpensesRemoved: removed})
}
