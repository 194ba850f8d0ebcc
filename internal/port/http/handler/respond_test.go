package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/service"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no session", session.ErrNoSession, http.StatusUnauthorized},
		{"over limit", apperr.ValidationErr("checkout.commit", service.ErrOverLimit), http.StatusConflict},
		{"closed view", fmt.Errorf("could not update quantity: %w", service.ErrStoreClosed), http.StatusServiceUnavailable},
		{"validation", apperr.Validation("http.decode", "Invalid request body"), http.StatusBadRequest},
		{"transport", apperr.Transport("market.list", errors.New("dial tcp")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
