package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID   int64
	Username string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// BearerToken extracts the token from the Authorization header. When
// allowQuery is set, a ?token= parameter is accepted as a fallback for
// clients that cannot set headers (browsers opening a websocket).
func BearerToken(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// Middleware rejects requests without a valid bearer token by calling
// onFail, and otherwise stores the caller's Identity in the context.
func Middleware(issuer *TokenIssuer, allowQuery bool, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r, allowQuery)
			if tokenStr == "" {
				onFail(w, r, ErrInvalidToken)
				return
			}
			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				onFail(w, r, err)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{UserID: claims.UserID, Username: claims.Username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
