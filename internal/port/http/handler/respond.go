package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/TeninChristopher/SAM/internal/session"
)

type errorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, log logger.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the core's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("Request failed: %v", err)
	} else {
		log.Debugf("Request refused: %v", err)
	}
	writeJSON(w, log, status, errorResponse{Error: messageFor(err, status), Details: detailsFor(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrNotFarmer), errors.Is(err, session.ErrNoCart):
		return http.StatusForbidden
	case errors.Is(err, service.ErrCheckoutNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMutationInFlight),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrOverLimit),
		errors.Is(err, service.ErrSelectionDiverged):
		return http.StatusConflict
	case errors.Is(err, service.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindRace:
		return http.StatusConflict
	case apperr.KindRejected:
		return http.StatusUnprocessableEntity
	case apperr.KindTransport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func messageFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal error"
	}
	return apperr.MessageOf(err)
}

func detailsFor(err error) interface{} {
	if apperr.KindOf(err) == apperr.KindRejected {
		// Details of a rejection hold the raw server body.
		return nil
	}
	return apperr.DetailsOf(err)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("http.decode", "Invalid request body: "+err.Error())
	}
	return nil
}

func currentSession(r *http.Request) (session.Session, error) {
	return session.FromContext(r.Context())
}
