package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/notifications"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NotificationsHandler struct {
	Inbox  *notifications.Inbox
	Logger *zap.SugaredLogger
}

type SendNotificationReq struct {
	UserID  string             `json:"userId"`
	Title   string             `json:"title"`
	Message string             `json:"message"`
	Type    notifications.Type `json:"type"`
	Link    *string            `json:"link"`
}

type NotificationResp struct {
	Notification *notifications.Notification `json:"notification"`
}

func (h *NotificationsHandler) Register(r chi.Router, g *Guard) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(g.Session)
		r.Get("/", h.list)
		r.With(RequireRoles(auth.RoleAdmin, auth.RoleManager)).Post("/", h.send)
		r.Post("/mark-all-read", h.markAllRead)
		r.Patch("/{id}", h.setRead)
		r.Delete("/{id}", h.delete)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Inbox.List(ctx, sessionOf(r).UserID, limit, q.Get("unreadOnly") == "true")
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationsHandler) send(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	n, err := h.Inbox.Send(ctx, notifications.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
		Link:    req.Link,
	})
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, NotificationResp{Notification: n})
}

func (h *NotificationsHandler) setRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsRead *bool `json:"isRead"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	read := true
	if req.IsRead != nil {
		read = *req.IsRead
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Inbox.SetRead(ctx, sessionOf(r).UserID, chi.URLParam(r, "id"), read)
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NotificationResp{Notification: n})
}

func (h *NotificationsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Inbox.Delete(ctx, sessionOf(r).UserID, chi.URLParam(r, "id")); err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NotificationsHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Inbox.MarkAllRead(ctx, sessionOf(r).UserID); err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
