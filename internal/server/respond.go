package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voyagen/tvonline/internal/catalog"
	"github.com/voyagen/tvonline/internal/fetcher"
	"github.com/voyagen/tvonline/internal/m3u"
	"github.com/voyagen/tvonline/internal/service"
	"github.com/voyagen/tvonline/internal/store"
	"github.com/voyagen/tvonline/internal/xtream"
)

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, xtream.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, fetcher.ErrSuperseded), errors.Is(err, service.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, fetcher.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrEmptyPlaylist), errors.Is(err, m3u.ErrNotText),
		errors.Is(err, xtream.ErrNotSequence), errors.Is(err, service.ErrNotXtream):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fetcher.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrSearchDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("writeJSON")
	}
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeErr writes err with the status statusFor picks.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	s.writeStatusErr(w, statusFor(err), err)
}

func (s *Server) writeStatusErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.WithError(err).WithField("status", status).Error("request failed")
	}
	s.writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return invalidJSON(err)
	}
	return nil
}
