// Package session carries the caller identity explicitly through the core.
package session

import (
	"context"
	"errors"
)

type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleCustomer Role = "customer"
)

// Session identifies who is acting. FarmerID is set for sellers,
// CustomerID and CartID for buyers.
type Session struct {
	UserID     string
	Role       Role
	FarmerID   string
	CustomerID string
	CartID     string
}

var (
	ErrNoSession = errors.New("no session in context")
	ErrNotFarmer = errors.New("session is not a farmer session")
	ErrNoCart    = errors.New("session has no cart")
)

func (s Session) RequireFarmer() error {
	if s.Role != RoleFarmer || s.FarmerID == "" {
		return ErrNotFarmer
	}
	return nil
}

func (s Session) RequireCart() error {
	if s.CartID == "" {
		return ErrNoCart
	}
	return nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}
