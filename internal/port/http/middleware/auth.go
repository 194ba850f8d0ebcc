package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/TeninChristopher/SAM/internal/domain/apperr"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/TeninChristopher/SAM/internal/repository"
	"github.com/TeninChristopher/SAM/internal/session"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the user service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionResolver turns an authenticated user into a storefront session.
type SessionResolver struct {
	accounts repository.AccountDirectory
}

func NewSessionResolver(accounts repository.AccountDirectory) *SessionResolver {
	return &SessionResolver{accounts: accounts}
}

// Resolve looks the user up as a farmer when the token says so, otherwise as a customer.
func (r *SessionResolver) Resolve(ctx context.Context, userID, role string) (session.Session, error) {
	if strings.EqualFold(role, string(session.RoleFarmer)) {
		farmerID, err := r.accounts.FarmerIDByUserID(ctx, userID)
		if err != nil {
			return session.Session{}, err
		}
		return session.Session{UserID: userID, Role: session.RoleFarmer, FarmerID: farmerID}, nil
	}
	customer, err := r.accounts.CustomerByUserID(ctx, userID)
	if err != nil {
		return session.Session{}, err
	}
	return session.Session{
		UserID:     userID,
		Role:       session.RoleCustomer,
		CustomerID: customer.CustomerID,
		CartID:     customer.CartID,
	}, nil
}

// JWTAuth validates the bearer token and puts the resolved session into the request context.
func JWTAuth(jwtSecret string, resolver *SessionResolver, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w, "authorization token format is invalid, expected 'Bearer <token>'")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				log.Warnf("JWTAuth: token rejected: %v", err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					unauthorized(w, "token has expired")
					return
				}
				unauthorized(w, "token is invalid")
				return
			}
			if claims.UserID == "" {
				unauthorized(w, "user_id not found in token claims")
				return
			}

			sess, err := resolver.Resolve(r.Context(), claims.UserID, claims.Role)
			if err != nil {
				log.Warnf("JWTAuth: no storefront account for user %s: %v", claims.UserID, err)
				if apperr.IsRejected(err) || errors.Is(err, repository.ErrNotFound) {
					unauthorized(w, "no account for this user")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "could not resolve account"})
				return
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, claims.UserID)
			ctx = session.WithSession(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
