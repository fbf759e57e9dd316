package authapi

import (
	"context"
	"errors"
	"net/http"

	"authgate/cmd/internal/auth/session"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user id placed on the context by
// RequireSession.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RequireSession rejects requests that do not carry an active session
// and stamps the owning user id onto the request context for handlers
// downstream.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.dbEnabled {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage not configured")
			return
		}

		tok := h.sessionTokenFromRequest(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "session_not_active", "authentication required")
			return
		}

		userID, err := h.authority.Resolve(r.Context(), tok)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrSessionNotActive):
				writeError(w, http.StatusUnauthorized, "session_not_active", "session not active")
			case errors.Is(err, session.ErrUnavailable):
				h.log.Error("auth.require_session.fail", "err", err)
				writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "please retry later")
			default:
				h.log.Error("auth.require_session.fail", "err", err)
				writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}
