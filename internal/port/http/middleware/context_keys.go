package middleware

// ContextKey is the type of request context keys set by this package.
type ContextKey string

const (
	// UserIDCtxKey holds the authenticated user id.
	UserIDCtxKey = ContextKey("user_id")
	// RequestIDCtxKey holds the id logged with every line of a request.
	RequestIDCtxKey = ContextKey("request_id")
)
