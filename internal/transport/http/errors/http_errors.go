package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ojodaltonico/bot-moderador/internal/domain/faults"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteFault maps the domain fault taxonomy onto the HTTP surface. Unknown
// errors become an opaque 500.
func WriteFault(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, faults.ErrNotFound):
		Write(w, http.StatusNotFound, APIError{Code: "NOT_FOUND", Message: "resource not found"})
	case errors.Is(err, faults.ErrInvalidState):
		Write(w, http.StatusConflict, APIError{Code: "INVALID_STATE", Message: "operation not valid in the current state"})
	case errors.Is(err, faults.ErrConflict):
		Write(w, http.StatusConflict, APIError{Code: "CONFLICT", Message: "resource was claimed or changed concurrently"})
	case errors.Is(err, faults.ErrPolicyViolation):
		Write(w, http.StatusUnprocessableEntity, APIError{Code: "POLICY_VIOLATION", Message: "operation violates a moderation policy"})
	case errors.Is(err, faults.ErrForbidden):
		Write(w, http.StatusForbidden, APIError{Code: "FORBIDDEN", Message: "caller is not allowed to perform this operation"})
	default:
		Write(w, http.StatusInternalServerError, APIError{Code: "INTERNAL_ERROR", Message: "internal server error"})
	}
}
