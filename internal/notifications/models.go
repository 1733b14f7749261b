package notifications

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("notification not found")
	ErrForbidden  = errors.New("notification belongs to another user")
	ErrValidation = errors.New("validation failed")
)

type Type string

const (
	TypeOrder   Type = "order"
	TypePayment Type = "payment"
	TypePromo   Type = "promo"
	TypeSystem  Type = "system"
	TypeSupport Type = "support"
)

func (t Type) Valid() bool {
	switch t {
	case TypeOrder, TypePayment, TypePromo, TypeSystem, TypeSupport:
		return true
	}
	return false
}

// Notification is an inbox message. Only IsRead changes after creation.
// SourceEventID and Kind are set for notifications derived from order events
// and make their insert idempotent.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"-"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Type          Type      `json:"type"`
	Link          *string   `json:"link"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
	SourceEventID *string   `json:"-"`
	Kind          *string   `json:"-"`
}
