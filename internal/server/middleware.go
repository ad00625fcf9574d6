package server

import (
	"net/http"
	"strings"
	"time"

	"donorbridge/internal/session"

	"github.com/sirupsen/logrus"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RequireAuth resolves the caller from the session cookie, or a bearer
// token for API clients, and places the identity on the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken, ok := s.accessToken(r)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "Sign in to continue.")
			return
		}

		identity, err := s.verify(r.Context(), accessToken)
		if err != nil {
			s.logger.WithError(err).Warn("rejected access token")
			s.writeError(w, http.StatusUnauthorized, "Your session has expired. Sign in again.")
			return
		}

		s.logger.WithFields(logrus.Fields{
			"user_id": identity.ID,
			"email":   identity.Email,
		}).Debug("authenticated user")

		next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), identity)))
	})
}

func (s *Service) accessToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, found := strings.CutPrefix(header, "Bearer ")
		return strings.TrimSpace(token), found && strings.TrimSpace(token) != ""
	}

	cookie, err := r.Cookie(cookieAccessTokenName)
	if err != nil {
		return "", false
	}

	var accessToken string
	if err := s.cookie.Decode(cookieAccessTokenName, cookie.Value, &accessToken); err != nil {
		s.logger.WithError(err).Warn("failed to decrypt access token")
		return "", false
	}

	return accessToken, accessToken != ""
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}

		next.ServeHTTP(w, r)
	})
}
