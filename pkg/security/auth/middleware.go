package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// TokenSource defines where to extract the token from.
type TokenSource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources accepts the token as the "token" query parameter, the
// X-NTM-Token header or a bearer Authorization header.
func DefaultSources() []TokenSource {
	return []TokenSource{
		{Type: "query", Name: "token"},
		{Type: "header", Name: "X-NTM-Token"},
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	}
}

// TokenMiddleware is HTTP middleware for shared-secret authentication.
type TokenMiddleware struct {
	validator *TokenValidator
	sources   []TokenSource
	logger    *slog.Logger
}

// NewTokenMiddleware creates a new token authentication middleware.
func NewTokenMiddleware(validator *TokenValidator, sources []TokenSource) *TokenMiddleware {
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	return &TokenMiddleware{
		validator: validator,
		sources:   sources,
		logger:    slog.Default().With("component", "auth"),
	}
}

// Handle wraps an HTTP handler with token authentication.
func (m *TokenMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extractToken(r)
		if err == nil {
			err = m.validator.Validate(token)
		}
		if err != nil {
			m.logger.Warn("rejected control API request",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": ErrInvalidToken.Error()})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken returns the first token found in the configured sources.
func (m *TokenMiddleware) extractToken(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			if rest, ok := strings.CutPrefix(value, source.Scheme+" "); ok {
				return rest, nil
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}

	return "", fmt.Errorf("no token found")
}
