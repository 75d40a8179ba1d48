package handler

import (
	"net/http"
	"time"

	reportsdomain "gym-access-go/internal/domain/reports"
)

type summaryResponse struct {
	AsOf                  string `json:"as_of"`
	ActiveMembers         int64  `json:"active_members"`
	ExpiredMembers        int64  `json:"expired_members"`
	UpToDateMembers       int64  `json:"up_to_date_members"`
	EstimatedRevenueCents int64  `json:"estimated_revenue_cents"`
}

type rosterRowResponse struct {
	MemberID        int64   `json:"member_id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	DNI             string  `json:"dni"`
	PlanName        string  `json:"plan_name"`
	RemainingVisits int     `json:"remaining_visits"`
	ExpirationDate  string  `json:"expiration_date"`
	LastPaymentDate *string `json:"last_payment_date"`
	Active          bool    `json:"active"`
}

func (h *Handlers) ReportsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		AsOf:                  formatDate(summary.AsOf),
		ActiveMembers:         summary.ActiveMembers,
		ExpiredMembers:        summary.ExpiredMembers,
		UpToDateMembers:       summary.UpToDateMembers,
		EstimatedRevenueCents: summary.EstimatedRevenueCents,
	})
}

func (h *Handlers) ReportsAccessLog(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	rows, err := h.Reports.RecentAccess(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	for i := range rows {
		rows[i].OccurredAt = rows[i].OccurredAt.UTC().Truncate(time.Second)
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handlers) ReportsRoster(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reports.Roster(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]rosterRowResponse, 0, len(rows))
	for _, row := range rows {
		response = append(response, toRosterRowResponse(row))
	}
	writeJSON(w, http.StatusOK, response)
}

func toRosterRowResponse(row reportsdomain.RosterRow) rosterRowResponse {
	return rosterRowResponse{
		MemberID:        row.MemberID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		DNI:             row.DNI,
		PlanName:        row.PlanName,
		RemainingVisits: row.RemainingVisits,
		ExpirationDate:  formatDate(row.ExpirationDate),
		LastPaymentDate: formatDatePtr(row.LastPaymentDate),
		Active:          row.Active,
	}
}
