package api

import (
	"errors"
	"net/http"

	"queryd/internal/domain"
)

// httpStatusFromDomainError picks the response status for a domain error.
// Anything unrecognized is treated as internal.
func httpStatusFromDomainError(err error) int {
	var (
		notFound     *domain.NotFoundError
		accessDenied *domain.AccessDeniedError
		validation   *domain.ValidationError
		conflict     *domain.ConflictError
		duration     *domain.QueryDurationError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &duration):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
