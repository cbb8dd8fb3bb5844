package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"teamhub/internal/access"
	"teamhub/internal/domain"
	"teamhub/internal/security"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	loggerContextKey  contextKey = "logger"
)

// SessionResolver turns the token subject into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, userID int64) (access.Session, error)
}

// WithSession returns a new context carrying the caller's session.
func WithSession(ctx context.Context, sess access.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// CurrentSession extracts the session from context, if any.
func CurrentSession(r *http.Request) (access.Session, bool) {
	sess, ok := r.Context().Value(sessionContextKey).(access.Session)
	return sess, ok
}

func session(r *http.Request) access.Session {
	sess, _ := CurrentSession(r)
	return sess
}

// AuthMiddleware validates the Bearer token and attaches the session to the
// context. Deactivated or deleted accounts are rejected even with a valid
// token.
func AuthMiddleware(tokens *security.TokenService, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if len(authHeader) < len("Bearer ") || !strings.EqualFold(authHeader[:len("Bearer ")], "bearer ") {
				writeError(w, r, domain.Unauthorized("missing or invalid Authorization header"))
				return
			}
			tokenStr := strings.TrimSpace(authHeader[len("Bearer "):])

			userID, err := tokens.UserID(tokenStr)
			if err != nil {
				logFrom(r).WithError(err).Debug("token rejected")
				writeError(w, r, domain.Unauthorized("invalid token"))
				return
			}

			sess, err := sessions.Resolve(r.Context(), userID)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx := WithSession(r.Context(), sess)
			ctx = context.WithValue(ctx, loggerContextKey, logFrom(r).WithField("user_id", sess.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestLogger logs one line per request and leaves a request-scoped entry
// in the context for handlers.
func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := log.WithField("request_id", middleware.GetReqID(r.Context()))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			r = r.WithContext(context.WithValue(r.Context(), loggerContextKey, entry))
			defer func() {
				entry.WithFields(logrus.Fields{
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   ww.Status(),
					"bytes":    ww.BytesWritten(),
					"duration": time.Since(start),
				}).Info("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func logFrom(r *http.Request) *logrus.Entry {
	if e, ok := r.Context().Value(loggerContextKey).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
