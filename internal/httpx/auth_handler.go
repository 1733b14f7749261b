package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

type AuthHandler struct {
	Users        UserFinder
	Tokens       *auth.Issuer
	SecureCookie bool
	Logger       *zap.SugaredLogger
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResp struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
	Role  auth.Role `json:"role"`
}

func (h *AuthHandler) Register(r chi.Router, g *Guard) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.With(g.Session).Get("/auth/me", h.me)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.FindByEmail(ctx, req.Email)
	if errors.Is(err, users.ErrNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, req.Password)) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	if u.Status != users.StatusActive {
		writeError(w, http.StatusForbidden, "Account is "+strings.ToLower(u.Status))
		return
	}

	token, err := h.Tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Tokens.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	h.Logger.Infow("login", "user_id", u.ID, "role", u.Role)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    UserResp{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role},
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	c := sessionOf(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": UserResp{ID: c.UserID, Email: c.Email, Role: c.Role},
	})
}
