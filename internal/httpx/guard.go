package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"go.uber.org/zap"
)

type MaintenanceFlag interface {
	Enabled(ctx context.Context) bool
}

type AccountLookup interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// Guard holds the session and maintenance checks shared by all handlers.
// When Users is set, every session is checked against the account's current
// status.
type Guard struct {
	Tokens      *auth.Issuer
	Users       AccountLookup
	Maintenance MaintenanceFlag
	Logger      *zap.SugaredLogger
}

func tokenFrom(r *http.Request) string {
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Session rejects requests without a valid token with 401, and tokens of
// suspended or banned accounts with 403. It puts the claims on the request
// context.
func (g *Guard) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := tokenFrom(r)
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := g.Tokens.Parse(tok)
		if err != nil {
			g.Logger.Debugw("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if g.Users != nil && !g.accountActive(w, r, claims) {
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func (g *Guard) accountActive(w http.ResponseWriter, r *http.Request, claims *auth.Claims) bool {
	u, err := g.Users.FindByID(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	case err != nil:
		fail(w, g.Logger, err)
		return false
	case u.Status != users.StatusActive:
		writeError(w, http.StatusForbidden, "Account is "+strings.ToLower(u.Status))
		return false
	}
	return true
}

// RequireRoles answers 403 unless the session role is one of roles. It must
// run after Session.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			if !claims.HasRole(roles...) {
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Storefront answers 503 while maintenance mode is on, except for staff.
func (g *Guard) Storefront(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.Maintenance != nil && g.Maintenance.Enabled(r.Context()) {
			claims, ok := auth.FromContext(r.Context())
			if !ok || !claims.HasRole(auth.RoleAdmin, auth.RoleManager) {
				writeError(w, http.StatusServiceUnavailable, "Service under maintenance")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func sessionOf(r *http.Request) *auth.Claims {
	c, _ := auth.FromContext(r.Context())
	return c
}
