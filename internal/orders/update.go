package orders

import (
	"fmt"
	"time"
)

// Update is a partial admin edit. Nil fields are left untouched; a non-nil
// empty TrackingNumber or AdminNotes clears the column.
type Update struct {
	Status         *Status
	PaymentStatus  *PaymentStatus
	TrackingNumber *string
	AdminNotes     *string
	PaidAt         *time.Time
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
}

// Text is a nullable column write. Set reports whether the column is written.
type Text struct {
	Set   bool
	Value *string
}

// Changes is the column set one update writes. Monetary columns are not
// representable here.
type Changes struct {
	Status         *Status
	PaymentStatus  *PaymentStatus
	PaidAt         *time.Time
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	TrackingNumber Text
	AdminNotes     Text
}

func (c Changes) Empty() bool {
	return c.Status == nil && c.PaymentStatus == nil &&
		c.PaidAt == nil && c.ShippedAt == nil && c.DeliveredAt == nil &&
		!c.TrackingNumber.Set && !c.AdminNotes.Set
}

// Plan validates u against the current order and computes the columns to
// write. Derived timestamps are stamped with now the first time their status
// is reached, unless u supplies them explicitly.
func Plan(o *Order, u Update, now time.Time) (Changes, error) {
	var ch Changes

	if u.Status != nil {
		to := *u.Status
		if !to.Valid() {
			return Changes{}, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
		}
		if !CanTransition(o.Status, to) {
			return Changes{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}
		if to != o.Status {
			ch.Status = &to
			if to == StatusShipped && o.ShippedAt == nil {
				ch.ShippedAt = &now
			}
			if to == StatusDelivered && o.DeliveredAt == nil {
				ch.DeliveredAt = &now
			}
		}
	}

	if u.PaymentStatus != nil {
		to := *u.PaymentStatus
		if !to.Valid() {
			return Changes{}, fmt.Errorf("%w: unknown payment status %q", ErrValidation, to)
		}
		if !CanTransitionPayment(o.PaymentStatus, to) {
			return Changes{}, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, o.PaymentStatus, to)
		}
		if to != o.PaymentStatus {
			ch.PaymentStatus = &to
			if to == PaymentCompleted && o.PaidAt == nil {
				ch.PaidAt = &now
			}
		}
	}

	if u.TrackingNumber != nil {
		ch.TrackingNumber = nullable(*u.TrackingNumber)
	}
	if u.AdminNotes != nil {
		ch.AdminNotes = nullable(*u.AdminNotes)
	}

	// explicit values win over stamps
	if u.PaidAt != nil {
		ch.PaidAt = u.PaidAt
	}
	if u.ShippedAt != nil {
		ch.ShippedAt = u.ShippedAt
	}
	if u.DeliveredAt != nil {
		ch.DeliveredAt = u.DeliveredAt
	}
	return ch, nil
}

// Apply returns a copy of o with ch written over it.
func Apply(o Order, ch Changes) Order {
	if ch.Status != nil {
		o.Status = *ch.Status
	}
	if ch.PaymentStatus != nil {
		o.PaymentStatus = *ch.PaymentStatus
	}
	if ch.PaidAt != nil {
		o.PaidAt = ch.PaidAt
	}
	if ch.ShippedAt != nil {
		o.ShippedAt = ch.ShippedAt
	}
	if ch.DeliveredAt != nil {
		o.DeliveredAt = ch.DeliveredAt
	}
	if ch.TrackingNumber.Set {
		o.TrackingNumber = ch.TrackingNumber.Value
	}
	if ch.AdminNotes.Set {
		o.AdminNotes = ch.AdminNotes.Value
	}
	return o
}

func nullable(s string) Text {
	if s == "" {
		return Text{Set: true}
	}
	return Text{Set: true, Value: &s}
}
