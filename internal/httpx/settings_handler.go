package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type MaintenanceSwitch interface {
	MaintenanceFlag
	SetEnabled(ctx context.Context, on bool) error
}

type SettingsHandler struct {
	Maintenance MaintenanceSwitch
	Logger      *zap.SugaredLogger
}

func (h *SettingsHandler) Register(r chi.Router, g *Guard) {
	r.Get("/settings/maintenance", h.get)
	r.With(g.Session, RequireRoles(auth.RoleAdmin)).Put("/admin/settings/maintenance", h.put)
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.Maintenance.Enabled(r.Context())})
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Maintenance.SetEnabled(ctx, *req.Enabled); err != nil {
		fail(w, h.Logger, err)
		return
	}
	h.Logger.Infow("maintenance mode changed", "enabled", *req.Enabled, "by", sessionOf(r).UserID)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}
