package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"queryd/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to its HTTP status. Internal errors are not
// echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// decodeJSON parses the request body into v, returning a ValidationError on
// malformed input.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// pageFromQuery extracts offset/limit pagination parameters.
func pageFromQuery(r *http.Request) (domain.PageRequest, error) {
	var p domain.PageRequest
	if v := r.URL.Query().Get("offset"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &p.Offset); err != nil || p.Offset < 0 {
			return p, domain.ErrValidation("invalid offset %q", v)
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &p.Size); err != nil || p.Size < 0 {
			return p, domain.ErrValidation("invalid limit %q", v)
		}
	}
	return p, nil
}
