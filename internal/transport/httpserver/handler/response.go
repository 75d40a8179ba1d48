package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	membershipdomain "gym-access-go/internal/domain/membership"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeMembershipError maps engine errors onto statuses. Anything that is
// not a business error is a 500; the engine has already logged it.
func writeMembershipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, membershipdomain.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "member_not_found", "member not found")
	case errors.Is(err, membershipdomain.ErrDuplicateActiveDNI):
		writeError(w, http.StatusConflict, "duplicate_active_dni", err.Error())
	case errors.Is(err, membershipdomain.ErrDNIBelongsToInactive):
		writeError(w, http.StatusConflict, "dni_belongs_to_inactive", err.Error())
	case errors.Is(err, membershipdomain.ErrDuplicateDNI):
		writeError(w, http.StatusConflict, "duplicate_dni", err.Error())
	case errors.Is(err, membershipdomain.ErrInvalidVisits):
		writeError(w, http.StatusBadRequest, "invalid_visits", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
