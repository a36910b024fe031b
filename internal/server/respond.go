// Package server is the HTTP boundary: routing, authentication, request
// decoding, and the response envelope. All domain behavior lives in the
// engines; handlers translate between the wire and engine calls.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
)

// Pagination is the list-response page descriptor.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *errBody    `json:"error,omitempty"`
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respond writes a success envelope.
func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// respondPage writes a success envelope with pagination.
func respondPage(w http.ResponseWriter, data any, page, limit, total int) {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       data,
		Pagination: &Pagination{Page: page, Limit: limit, Total: total, Pages: pages},
	})
}

// respondErr maps a typed error to its HTTP surface. Internal details are
// logged, never returned.
func respondErr(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	evt := logger.Warn()
	if kind == apperr.KindInternal {
		evt = logger.Error()
	}
	evt.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("code", apperr.CodeOf(err)).
		Msg("request failed")

	writeJSON(w, status, envelope{
		Success: false,
		Error:   &errBody{Code: apperr.CodeOf(err), Message: apperr.MessageOf(err)},
	})
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	return nil
}
