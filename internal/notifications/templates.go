package notifications

import (
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/orders"
)

// Kinds name the rule that produced a notification. One event yields at most
// one notification per kind.
const (
	KindPlaced           = "order.placed"
	KindStatusPrefix     = "order.status."
	KindPaymentConfirmed = "payment.completed"
)

type statusTemplate struct {
	title string
	typ   Type
	msg   func(p orders.StatusChangedPayload) string
}

var statusTemplates = map[orders.Status]statusTemplate{
	orders.StatusPaid: {
		title: "Payment Received",
		typ:   TypePayment,
		msg: func(p orders.StatusChangedPayload) string {
			return fmt.Sprintf("Payment for order %s has been received", p.OrderNumber)
		},
	},
	orders.StatusShipped: {
		title: "Order Shipped",
		typ:   TypeOrder,
		msg: func(p orders.StatusChangedPayload) string {
			if p.TrackingNumber != nil && *p.TrackingNumber != "" {
				return fmt.Sprintf("Your order %s has been shipped. Tracking number: %s", p.OrderNumber, *p.TrackingNumber)
			}
			return fmt.Sprintf("Your order %s has been shipped", p.OrderNumber)
		},
	},
	orders.StatusDelivered: {
		title: "Order Delivered",
		typ:   TypeOrder,
		msg: func(p orders.StatusChangedPayload) string {
			return fmt.Sprintf("Your order %s has been delivered", p.OrderNumber)
		},
	},
	orders.StatusCancelled: {
		title: "Order Cancelled",
		typ:   TypeOrder,
		msg: func(p orders.StatusChangedPayload) string {
			return fmt.Sprintf("Your order %s has been cancelled", p.OrderNumber)
		},
	},
	orders.StatusRefunded: {
		title: "Order Refunded",
		typ:   TypeOrder,
		msg: func(p orders.StatusChangedPayload) string {
			return fmt.Sprintf("Your order %s has been refunded", p.OrderNumber)
		},
	},
}

func OrderLink(orderID string) string { return "/account/orders/" + orderID }

// ForStatusChange evaluates the status rule and the payment rule
// independently, so one event yields zero, one or two notifications.
func ForStatusChange(p orders.StatusChangedPayload) []Notification {
	var out []Notification
	if p.NewStatus != p.OldStatus {
		if t, ok := statusTemplates[p.NewStatus]; ok {
			out = append(out, newFor(p.UserID, p.OrderID, KindStatusPrefix+string(p.NewStatus), t.title, t.msg(p), t.typ))
		}
	}
	if p.NewPaymentStatus != p.OldPaymentStatus && p.NewPaymentStatus == orders.PaymentCompleted {
		msg := fmt.Sprintf("Payment for order %s has been confirmed", p.OrderNumber)
		out = append(out, newFor(p.UserID, p.OrderID, KindPaymentConfirmed, "Payment Confirmed", msg, TypePayment))
	}
	return out
}

func ForOrderPlaced(p orders.OrderPlacedPayload) Notification {
	msg := fmt.Sprintf("Your order %s has been placed successfully", p.OrderNumber)
	return newFor(p.UserID, p.OrderID, KindPlaced, "Order Placed", msg, TypeOrder)
}

func newFor(userID, orderID, kind, title, msg string, typ Type) Notification {
	link := OrderLink(orderID)
	k := kind
	return Notification{
		UserID:  userID,
		Title:   title,
		Message: msg,
		Type:    typ,
		Link:    &link,
		Kind:    &k,
	}
}
