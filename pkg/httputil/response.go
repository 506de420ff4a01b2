// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// QuotaErrorResponse names the exhausted limit so clients can react
type QuotaErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Resource string `json:"resource"`
	Current  int    `json:"current"`
	Limit    int    `json:"limit"`
}

// WriteDomainError maps the error taxonomy onto HTTP status codes:
//
//	ValidationError    -> 400
//	ErrUnauthenticated -> 401
//	QuotaExceededError -> 402 with code "quota_exceeded"
//	ErrForbidden       -> 403, body reveals nothing beyond "not permitted"
//	ErrNotFound        -> 404 (cross-tenant indistinguishable from absent)
//	transient          -> 503
//	anything else      -> 500
func WriteDomainError(w http.ResponseWriter, err error) {
	var qe *quota.QuotaExceededError
	switch {
	case errs.IsValidation(err):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, errs.ErrUnauthenticated):
		WriteUnauthorized(w, errs.ErrUnauthenticated.Error())
	case errors.As(err, &qe):
		WriteJSON(w, http.StatusPaymentRequired, QuotaErrorResponse{
			Error:    qe.Error(),
			Code:     "quota_exceeded",
			Resource: string(qe.Resource),
			Current:  qe.Current,
			Limit:    qe.Limit,
		})
	case errors.Is(err, errs.ErrForbidden):
		WriteForbidden(w, errs.ErrForbidden.Error())
	case errors.Is(err, errs.ErrNotFound):
		WriteErrorMessage(w, http.StatusNotFound, "not found")
	case errs.IsTransient(err):
		WriteErrorMessage(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
