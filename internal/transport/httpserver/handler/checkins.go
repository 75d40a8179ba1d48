package handler

import (
	"net/http"

	membershipdomain "gym-access-go/internal/domain/membership"
)

type checkInRequest struct {
	DNI string `json:"dni"`
}

type memberCardResponse struct {
	MemberID        int64   `json:"member_id"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	PlanName        string  `json:"plan_name"`
	ExpirationDate  string  `json:"expiration_date"`
	LastPaymentDate *string `json:"last_payment_date"`
	RemainingVisits int     `json:"remaining_visits"`
}

type checkInResponse struct {
	Outcome  string              `json:"outcome"`
	Admitted bool                `json:"admitted"`
	Member   *memberCardResponse `json:"member"`
}

// CheckIn answers 200 for every business outcome, including unknown DNIs.
func (h *Handlers) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	result, err := h.Members.CheckIn(r.Context(), req.DNI)
	if err != nil {
		writeMembershipError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCheckInResponse(result))
}

func toCheckInResponse(result membershipdomain.CheckInResult) checkInResponse {
	response := checkInResponse{
		Outcome:  string(result.Outcome),
		Admitted: result.Admitted(),
	}
	if card := result.Card; card != nil {
		response.Member = &memberCardResponse{
			MemberID:        card.MemberID,
			FirstName:       card.FirstName,
			LastName:        card.LastName,
			PlanName:        card.PlanName,
			ExpirationDate:  formatDate(card.ExpirationDate),
			LastPaymentDate: formatDatePtr(card.LastPaymentDate),
			RemainingVisits: card.RemainingVisits,
		}
	}
	return response
}
