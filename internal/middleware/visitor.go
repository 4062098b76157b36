package middleware

import (
	"context"
	"net/http"

	"prepify/internal/logger"
	"prepify/internal/session"
)

type visitorKey struct{}

// VisitorSessions is the part of session.Store the middleware needs.
type VisitorSessions interface {
	Load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Data, error)
}

// LoadVisitor loads or starts the visitor session and puts it in the
// request context. Session storage failures are logged and the request
// continues without a visitor.
func LoadVisitor(store VisitorSessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Load(r.Context(), w, r)
			if err != nil {
				logger.FromContext(r.Context()).Warn("visitor session unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), visitorKey{}, data)))
		})
	}
}

// VisitorFromCtx returns the visitor session, or nil.
func VisitorFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(visitorKey{}).(*session.Data)
	return data
}

// WithVisitor returns ctx carrying data. Used by tests and by handlers
// that start a session mid-request.
func WithVisitor(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, visitorKey{}, data)
}
