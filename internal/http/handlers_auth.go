package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"spendtrack/internal/auth"
	"spendtrack/internal/core"
	"spendtrack/internal/storage"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func toUserPayload(u core.User) userPayload {
	return userPayload{ID: u.ID, Username: u.Username, Email: u.Email}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Username = sanitizeInput(req.Username)
	req.Email = sanitizeInput(req.Email)

	var problems []string
	if len(req.Username) < 3 || len(req.Username) > 50 {
		problems = append(problems, "username must be 3-50 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		problems = append(problems, "invalid email address")
	}
	if len(req.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid registration", Problems: problems})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, strings.ToLower(req.Email), hash)
	if errors.Is(err, storage.ErrDuplicate) {
		writeError(w, http.StatusConflict, "username or email already taken")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserPayload(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), sanitizeInput(req.Username))
	if errors.Is(err, storage.ErrNotFound) {
		// Same response as a wrong password; no account probing.
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		slog.WarnContext(r.Context(), "Failed login attempt", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserPayload(user)})
}

type budgetPayload struct {
	MonthlyBudget float64 `json:"monthly_budget"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	budget, err := s.store.GetMonthlyBudget(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetPayload{MonthlyBudget: budget.Amount()})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req budgetPayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MonthlyBudget < 0 {
		writeError(w, http.StatusBadRequest, "monthly_budget must not be negative")
		return
	}

	budget := core.Money{Cents: core.CentsFromFloat(req.MonthlyBudget)}
	if err := s.store.SetMonthlyBudget(r.Context(), userID, budget); err != nil {
		writeDomainError(w, err)
		return
	}

	// Cached summaries embed the budget status.
	s.summaries.InvalidateUser(r.Context(), userID)

	writeJSON(w, http.StatusOK, budgetPayload{MonthlyBudget: budget.Amount()})
}
