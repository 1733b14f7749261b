package httpx

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ariefcatur/storefront-orders/internal/notifications"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrder(h *harness, id string, status orders.Status, payment orders.PaymentStatus) {
	h.orders.rows[id] = orders.Order{
		ID:            id,
		OrderNumber:   "ORD-1700000000000-" + id,
		UserID:        buyer.userID,
		Subtotal:      decimal.RequireFromString("100"),
		Tax:           decimal.RequireFromString("10"),
		Total:         decimal.RequireFromString("110"),
		Status:        status,
		PaymentStatus: payment,
		PaymentMethod: orders.MethodBankTransfer,
		Version:       1,
	}
}

type orderBody struct {
	Message string      `json:"message"`
	OrderID string      `json:"orderId"`
	Order   orders.View `json:"order"`
	Error   string      `json:"error"`
}

func decodeOrder(t *testing.T, body []byte) orderBody {
	t.Helper()
	var out orderBody
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestApprove_O1(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "O1", orders.StatusPendingPayment, orders.PaymentPending)

	rec := h.do(t, admin, http.MethodPost, "/admin/orders/O1/approve", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeOrder(t, rec.Body.Bytes())
	assert.Equal(t, "Order payment approved successfully", got.Message)
	assert.Equal(t, orders.PaymentCompleted, got.Order.PaymentStatus)
	assert.Equal(t, orders.StatusProcessing, got.Order.Status)
	assert.NotNil(t, got.Order.PaidAt)

	notes := h.notes.forUser(buyer.userID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Payment Confirmed", notes[0].Title)
	assert.Equal(t, notifications.TypePayment, notes[0].Type)
	assert.Equal(t, "/account/orders/O1", *notes[0].Link)
}

func TestShipWithTracking_O2(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "O2", orders.StatusProcessing, orders.PaymentCompleted)

	rec := h.do(t, manager, http.MethodPatch, "/admin/orders/O2", `{"status":"SHIPPED","trackingNumber":"TRK123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeOrder(t, rec.Body.Bytes())
	assert.Equal(t, orders.StatusShipped, got.Order.Status)
	assert.NotNil(t, got.Order.ShippedAt)
	require.NotNil(t, got.Order.TrackingNumber)
	assert.Equal(t, "TRK123", *got.Order.TrackingNumber)
	assert.Equal(t, 110.0, got.Order.Total)

	notes := h.notes.forUser(buyer.userID)
	require.Len(t, notes, 1)
	assert.Equal(t, notifications.TypeOrder, notes[0].Type)
	assert.Contains(t, notes[0].Message, "TRK123")

	// same PATCH again: status unchanged, nothing new
	rec = h.do(t, manager, http.MethodPatch, "/admin/orders/O2", `{"status":"SHIPPED","trackingNumber":"TRK123"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.notes.forUser(buyer.userID), 1)
}

func TestUpdate_RequiresStaff(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "O3", orders.StatusProcessing, orders.PaymentCompleted)

	rec := h.do(t, buyer, http.MethodPatch, "/admin/orders/O3", `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden"}`, rec.Body.String())

	rec = h.do(t, anonymous, http.MethodPatch, "/admin/orders/O3", `{"status":"SHIPPED"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, buyer, http.MethodPost, "/admin/orders/O3/approve", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Equal(t, orders.StatusProcessing, h.orders.rows["O3"].Status)
	assert.Empty(t, h.notes.forUser(buyer.userID))
}

func TestUpdate_ErrorMapping(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "O4", orders.StatusPendingPayment, orders.PaymentPending)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown order", "/admin/orders/nope", `{"status":"PAID"}`, http.StatusNotFound},
		{"unknown status", "/admin/orders/O4", `{"status":"TELEPORTED"}`, http.StatusBadRequest},
		{"illegal transition", "/admin/orders/O4", `{"status":"DELIVERED"}`, http.StatusConflict},
		{"bad json", "/admin/orders/O4", `{"status":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, admin, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeOrder(t, rec.Body.Bytes()).Error)
		})
	}
	assert.Equal(t, orders.StatusPendingPayment, h.orders.rows["O4"].Status)
}

func TestUpdate_EmptyBodyIsNoop(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "O5", orders.StatusPaid, orders.PaymentCompleted)

	for _, body := range []string{"{}", ""} {
		rec := h.do(t, admin, http.MethodPatch, "/admin/orders/O5", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, orders.StatusPaid, decodeOrder(t, rec.Body.Bytes()).Order.Status)
	}
	assert.Equal(t, 1, h.orders.rows["O5"].Version)
	assert.Empty(t, h.notes.forUser(buyer.userID))
}

func TestAdminGetAndList(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "A1", orders.StatusPaid, orders.PaymentCompleted)
	seedOrder(h, "A2", orders.StatusPendingPayment, orders.PaymentPending)

	rec := h.do(t, admin, http.MethodGet, "/admin/orders?status=PAID", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list OrderListResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Pages)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, "A1", list.Orders[0].ID)

	rec = h.do(t, admin, http.MethodGet, "/admin/orders?status=LOST", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, admin, http.MethodGet, "/admin/orders/A2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A2", decodeOrder(t, rec.Body.Bytes()).Order.ID)
}

func TestCustomerOrders_OwnOnly(t *testing.T) {
	h := newHarness(t)
	seedOrder(h, "C1", orders.StatusPaid, orders.PaymentCompleted)

	rec := h.do(t, buyer, http.MethodGet, "/orders/C1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, stranger, http.MethodGet, "/orders/C1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, stranger, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list OrderListResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Orders)
	assert.Equal(t, 0, list.Total)
}

func TestCheckout_IdempotencyKey(t *testing.T) {
	h := newHarness(t)
	h.orders.products["p1"] = orders.ProductSnapshot{ID: "p1", Name: "Mug", Price: decimal.RequireFromString("20")}
	body := `{"items":[{"productId":"p1","quantity":2}],"address":{"city":"Bandung"},"paymentMethod":"cod"}`

	first := h.do(t, buyer, http.MethodPost, "/orders", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	a := decodeOrder(t, first.Body.Bytes())
	assert.Equal(t, 44.0, a.Order.Total)
	assert.Equal(t, orders.MethodCashOnDelivery, a.Order.PaymentMethod)

	second := h.do(t, buyer, http.MethodPost, "/orders", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, a.OrderID, decodeOrder(t, second.Body.Bytes()).OrderID)

	assert.Len(t, h.orders.rows, 1)
	notes := h.notes.forUser(buyer.userID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Order Placed", notes[0].Title)

	rec := h.do(t, buyer, http.MethodPost, "/orders", `{"items":[],"paymentMethod":"cod"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenance_BlocksStorefront(t *testing.T) {
	h := newHarness(t)
	h.maint.on = true

	rec := h.do(t, buyer, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(t, admin, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, admin, http.MethodGet, "/admin/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
