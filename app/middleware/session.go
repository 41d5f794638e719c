package appMiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "session_id"
)

// maxSessionIDLen bounds client-supplied ids; they are stored verbatim.
const maxSessionIDLen = 128

// Session resolves the browsing session of a request. A session is an opaque
// id, not an authenticated identity: it is taken from the X-Session-ID header,
// then the session cookie, and minted (and set as a cookie) when neither is present.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				sessionID = c.Value
			}
		}
		if sessionID == "" || len(sessionID) > maxSessionIDLen {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, sessionID)

		ctx := WithSessionID(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}
