package api

import (
	"context"
	"net/http"
	"strings"

	"authgate/internal/auth"
	"authgate/internal/models"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the authenticated account.
func WithIdentity(ctx context.Context, id models.Summary) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the account attached by Gate.
func IdentityFrom(ctx context.Context) (models.Summary, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Summary)
	return id, ok
}

// Gate rejects requests without a valid session token and passes the
// resolved identity to next through the request context.
func Gate(svc Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeJSON(w, http.StatusUnauthorized, messageBody{Message: auth.MsgNoToken})
				return
			}
			id, err := svc.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
