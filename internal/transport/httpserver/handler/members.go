package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	membershipdomain "gym-access-go/internal/domain/membership"
)

type memberResponse struct {
	ID               int64   `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	DNI              string  `json:"dni"`
	PlanName         string  `json:"plan_name"`
	RemainingVisits  int     `json:"remaining_visits"`
	ExpirationDate   string  `json:"expiration_date"`
	LastPaymentDate  *string `json:"last_payment_date"`
	RegistrationDate string  `json:"registration_date"`
	Active           bool    `json:"active"`
}

type memberListResponse struct {
	Items []memberResponse `json:"items"`
	Total int              `json:"total"`
}

type accessEventResponse struct {
	ID         int64  `json:"id"`
	OccurredAt string `json:"occurred_at"`
	Kind       string `json:"kind"`
}

type planResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	PriceCents    int64  `json:"price_cents"`
	DefaultVisits int    `json:"default_visits"`
}

type dniStatusResponse struct {
	DNI    string `json:"dni"`
	Status string `json:"status"`
}

// Visits is optional; when absent the plan's default allowance applies.
type enrollRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DNI       string `json:"dni"`
	PlanName  string `json:"plan_name"`
	Visits    *int   `json:"visits"`
}

type renewRequest struct {
	PlanName string `json:"plan_name"`
	Visits   *int   `json:"visits"`
}

type editRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DNI       string `json:"dni"`
}

func toMemberResponse(m membershipdomain.Member) memberResponse {
	return memberResponse{
		ID:               m.ID,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		DNI:              m.DNI,
		PlanName:         m.PlanName(),
		RemainingVisits:  m.RemainingVisits,
		ExpirationDate:   formatDate(m.ExpirationDate),
		LastPaymentDate:  formatDatePtr(m.LastPaymentDate),
		RegistrationDate: formatDate(m.RegistrationDate),
		Active:           m.Active,
	}
}

func visitsOrDefault(visits *int, planName string) int {
	if visits != nil {
		return *visits
	}
	return membershipdomain.DefaultVisits(strings.TrimSpace(planName))
}

func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Members.ListPlans(r.Context())
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	response := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		response = append(response, planResponse{
			ID:            p.ID,
			Name:          p.Name,
			PriceCents:    p.PriceCents,
			DefaultVisits: p.DefaultVisits,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Members.ListActive(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, m := range members {
		items = append(items, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, memberListResponse{Items: items, Total: len(items)})
}

func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := memberIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid member id")
		return
	}

	member, err := h.Members.GetMember(r.Context(), id)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) ListAccessEvents(w http.ResponseWriter, r *http.Request) {
	id, err := memberIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid member id")
		return
	}
	limit, err := parseIntParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}

	events, err := h.Members.MemberHistory(r.Context(), id, limit)
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	response := make([]accessEventResponse, 0, len(events))
	for _, e := range events {
		response = append(response, accessEventResponse{
			ID:         e.ID,
			OccurredAt: e.OccurredAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Kind:       string(e.Kind),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) DNIStatus(w http.ResponseWriter, r *http.Request) {
	dni := strings.TrimSpace(chi.URLParam(r, "dni"))
	status, err := h.Members.LookupDNIStatus(r.Context(), dni)
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dniStatusResponse{DNI: dni, Status: string(status)})
}

func (h *Handlers) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if missing := missingFields(map[string]string{"first_name": req.FirstName, "last_name": req.LastName, "dni": req.DNI}); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(missing, ", ")+" required")
		return
	}

	member, err := h.Members.Register(r.Context(), membershipdomain.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DNI:       req.DNI,
		PlanName:  req.PlanName,
		Visits:    visitsOrDefault(req.Visits, req.PlanName),
	})
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(*member))
}

func (h *Handlers) ReactivateMember(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if missing := missingFields(map[string]string{"first_name": req.FirstName, "last_name": req.LastName, "dni": req.DNI}); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(missing, ", ")+" required")
		return
	}

	member, err := h.Members.Reactivate(r.Context(), membershipdomain.ReactivateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DNI:       req.DNI,
		PlanName:  req.PlanName,
		Visits:    visitsOrDefault(req.Visits, req.PlanName),
	})
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) RenewMember(w http.ResponseWriter, r *http.Request) {
	id, err := memberIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid member id")
		return
	}
	var req renewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	member, err := h.Members.Renew(r.Context(), id, req.PlanName, visitsOrDefault(req.Visits, req.PlanName))
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) EditMember(w http.ResponseWriter, r *http.Request) {
	id, err := memberIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid member id")
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if missing := missingFields(map[string]string{"first_name": req.FirstName, "last_name": req.LastName, "dni": req.DNI}); len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(missing, ", ")+" required")
		return
	}

	member, err := h.Members.Edit(r.Context(), membershipdomain.EditInput{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DNI:       req.DNI,
	})
	if err != nil {
		writeMembershipError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := memberIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid member id")
		return
	}

	if err := h.Members.SoftDelete(r.Context(), id); err != nil {
		writeMembershipError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
