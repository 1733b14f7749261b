package orders

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("order was modified concurrently")
)

type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	CryptoCurrency  *string
	CryptoAddressID *string
	ShippingAddress json.RawMessage
	TrackingNumber  *string
	AdminNotes      *string
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Items []OrderItem
	Buyer *Buyer // loaded for admin and seller reads
}

// OrderItem is a line snapshot taken at checkout; it never follows later
// product edits.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	ShopID    *string
	Name      string
	Image     *string
	Price     decimal.Decimal
	Quantity  int
}

type Buyer struct {
	ID    string
	Name  string
	Email string
	Phone *string
}

// ProductSnapshot is what checkout copies from the catalog into an OrderItem.
type ProductSnapshot struct {
	ID     string
	ShopID *string
	Name   string
	Price  decimal.Decimal
	Image  *string
}

type ListFilter struct {
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	UserID        string
	ShopID        string // restricts orders and their items to one shop
}
