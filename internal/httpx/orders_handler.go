package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// IdempotencyCache remembers which order a checkout Idempotency-Key created.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type OrdersHandler struct {
	Orders *orders.Service
	Idem   IdempotencyCache
	Logger *zap.SugaredLogger
}

type UpdateOrderReq struct {
	Status         *orders.Status        `json:"status"`
	PaymentStatus  *orders.PaymentStatus `json:"paymentStatus"`
	TrackingNumber *string               `json:"trackingNumber"`
	AdminNotes     *string               `json:"adminNotes"`
	PaidAt         *time.Time            `json:"paidAt"`
	ShippedAt      *time.Time            `json:"shippedAt"`
	DeliveredAt    *time.Time            `json:"deliveredAt"`
}

type CreateOrderReq struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	Address         json.RawMessage `json:"address"`
	PaymentMethod   string          `json:"paymentMethod"`
	CryptoType      string          `json:"cryptoType"`
	CryptoAddressID string          `json:"cryptoAddressId"`
}

type OrderResp struct {
	Message    string      `json:"message,omitempty"`
	OrderID    string      `json:"orderId,omitempty"`
	Order      orders.View `json:"order"`
	Idempotent bool        `json:"idempotent,omitempty"`
}

type OrderListResp struct {
	Orders []orders.View `json:"orders"`
	Page   int           `json:"page"`
	Total  int           `json:"total"`
	Pages  int           `json:"pages"`
}

func (h *OrdersHandler) Register(r chi.Router, g *Guard) {
	r.Route("/admin/orders", func(r chi.Router) {
		r.Use(g.Session, RequireRoles(auth.RoleAdmin, auth.RoleManager))
		r.Get("/", h.adminList)
		r.Get("/{id}", h.adminGet)
		r.Patch("/{id}", h.adminUpdate)
		r.Post("/{id}/approve", h.approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(g.Session, g.Storefront)
		r.Get("/orders", h.list)
		r.Post("/orders", h.create)
		r.Get("/orders/{id}", h.get)
	})
}

func withTrace(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := orders.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	return context.WithTimeout(ctx, d)
}

func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func listResp(p orders.Page, view func(*orders.Order) orders.View) OrderListResp {
	return OrderListResp{Orders: orders.Views(p.Orders, view), Page: p.Page, Total: p.Total, Pages: p.Pages}
}

func (h *OrdersHandler) adminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ListFilter{
		Status:        orders.Status(q.Get("status")),
		PaymentStatus: orders.PaymentStatus(q.Get("paymentStatus")),
		PaymentMethod: orders.PaymentMethod(q.Get("paymentMethod")),
	}
	if (f.Status != "" && !f.Status.Valid()) ||
		(f.PaymentStatus != "" && !f.PaymentStatus.Valid()) ||
		(f.PaymentMethod != "" && !f.PaymentMethod.Valid()) {
		writeError(w, http.StatusBadRequest, "invalid filter")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Orders.List(ctx, f, pageParam(r))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp(p, (*orders.Order).AdminView))
}

func (h *OrdersHandler) adminGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResp{Order: o.AdminView()})
}

func (h *OrdersHandler) adminUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	o, err := h.Orders.Update(ctx, chi.URLParam(r, "id"), orders.Update{
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		TrackingNumber: req.TrackingNumber,
		AdminNotes:     req.AdminNotes,
		PaidAt:         req.PaidAt,
		ShippedAt:      req.ShippedAt,
		DeliveredAt:    req.DeliveredAt,
	})
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResp{Message: "Order updated successfully", Order: o.AdminView()})
}

func (h *OrdersHandler) approve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	o, err := h.Orders.Approve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResp{Message: "Order payment approved successfully", Order: o.AdminView()})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Orders.List(ctx, orders.ListFilter{UserID: sessionOf(r).UserID}, pageParam(r))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResp(p, (*orders.Order).CustomerView))
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOwned(ctx, sessionOf(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderResp{Order: o.CustomerView()})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	userID := sessionOf(r).UserID

	ctx, cancel := withTrace(r, 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis: a replayed key returns the first order.
	var idemKey string
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Idem != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderCreate, userID, k)
		if orderID, ok, err := h.Idem.Get(ctx, idemKey); err == nil && ok {
			o, err := h.Orders.GetOwned(ctx, userID, orderID)
			if err == nil {
				writeJSON(w, http.StatusOK, OrderResp{
					Message: "Order placed successfully", OrderID: o.ID, Order: o.CustomerView(), Idempotent: true,
				})
				return
			}
			h.Logger.Warnw("idempotent replay lookup failed", "order_id", orderID, "error", err)
		}
	}

	c := orders.Checkout{
		Address:         req.Address,
		PaymentMethod:   req.PaymentMethod,
		CryptoType:      req.CryptoType,
		CryptoAddressID: req.CryptoAddressID,
	}
	for _, it := range req.Items {
		c.Items = append(c.Items, orders.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.Orders.Place(ctx, userID, c)
	if err != nil {
		fail(w, h.Logger, err)
		return
	}
	if idemKey != "" {
		if err := h.Idem.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency); err != nil {
			h.Logger.Warnw("idempotency key not stored", "order_id", o.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, OrderResp{Message: "Order placed successfully", OrderID: o.ID, Order: o.CustomerView()})
}
