package api

import (
	"errors"
	"net/http"

	"lakefence/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var contextStore *domain.ContextStoreError
	var query *domain.QueryError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &contextStore):
		// The broker is down; execution was refused, not attempted.
		return http.StatusServiceUnavailable
	case errors.As(err, &query):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
