package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShopFinder interface {
	ShopForOwner(ctx context.Context, userID string) (*users.Shop, error)
}

type SellerHandler struct {
	Orders *orders.Service
	Shops  ShopFinder
	Logger *zap.SugaredLogger
}

func (h *SellerHandler) Register(r chi.Router, g *Guard) {
	r.With(g.Session, g.Storefront).Get("/seller/orders", h.list)
}

// list returns orders holding at least one item of the caller's shop, with
// items narrowed to that shop.
func (h *SellerHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	shop, err := h.Shops.ShopForOwner(ctx, sessionOf(r).UserID)
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Shop not found")
		return
	}
	if err != nil {
		fail(w, h.Logger, err)
		return
	}

	f := orders.ListFilter{ShopID: shop.ID}
	if s := r.URL.Query().Get("status"); s != "" && s != "all" {
		f.Status = orders.Status(s)
		if !f.Status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
	}

	p, err := h.Orders.List(ctx, f, pageParam(r))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp(p, (*orders.Order).SellerView))
}
