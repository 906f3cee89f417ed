package http

import (
	"net/http"

	"spendtrack/internal/auth"
	"spendtrack/internal/filter"
)

// handleSummary serves the spending summary for the authenticated user
// under the requested filters. Results come from the summary cache when a
// fresh entry exists.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	params := filter.FromQuery(r.URL.Query())

	result, err := s.summaries.ListSummary(r.Context(), userID, params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
