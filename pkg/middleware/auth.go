package middleware

import (
	"net/http"

	"github.com/Maghvendra09/appointment-booking/pkg/auth"
	apperrors "github.com/Maghvendra09/appointment-booking/pkg/errors"
	httputil "github.com/Maghvendra09/appointment-booking/pkg/http"
	"github.com/Maghvendra09/appointment-booking/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Authenticate rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Authenticate(verifier *auth.Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r.Header.Get("Authorization"))

			identity, err := verifier.Verify(token)
			if err != nil {
				log.Warn("Authentication failed",
					"request_id", RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized, token missing or invalid"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole guards a single route. It must run behind Authenticate.
func RequireRole(role string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			_ = httputil.WriteError(w, apperrors.Unauthorized("Not authorized"))
			return
		}
		if identity.Role != role {
			_ = httputil.WriteError(w, apperrors.Forbidden("Not authorized for this action"))
			return
		}
		next(w, r, ps)
	}
}
