package http

import (
	"net/http"
	"strings"

	"pocketbook/internal/auth"
	applog "pocketbook/internal/log"
)

// requireAuth verifies the bearer token and attaches the caller to the context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			writeErrorMessage(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		userID, claims, err := s.tokens.Parse(token)
		if err != nil {
			writeErrorMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := auth.WithPrincipal(r.Context(), auth.Principal{UserID: userID, Email: claims.Email})
		logger := applog.FromContext(ctx).With(applog.FieldUserID, userID.String())
		ctx = applog.WithLogger(ctx, logger)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	writeErrorMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}
