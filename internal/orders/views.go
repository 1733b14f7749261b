package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// View is the JSON shape of an order. Money is rendered as plain numbers.
type View struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	Subtotal        float64         `json:"subtotal"`
	Shipping        float64         `json:"shipping"`
	Tax             float64         `json:"tax"`
	Total           float64         `json:"total"`
	ShopSubtotal    *float64        `json:"shopSubtotal,omitempty"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	CryptoCurrency  *string         `json:"cryptoCurrency"`
	ShippingAddress json.RawMessage `json:"shippingAddress,omitempty"`
	TrackingNumber  *string         `json:"trackingNumber"`
	AdminNotes      *string         `json:"adminNotes,omitempty"`
	PaidAt          *time.Time      `json:"paidAt"`
	ShippedAt       *time.Time      `json:"shippedAt"`
	DeliveredAt     *time.Time      `json:"deliveredAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	User            *BuyerView      `json:"user,omitempty"`
	Items           []ItemView      `json:"items"`
}

type ItemView struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	ShopID    *string `json:"shopId"`
	Name      string  `json:"name"`
	Image     *string `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type BuyerView struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

func (o *Order) base() View {
	v := View{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Subtotal:        o.Subtotal.InexactFloat64(),
		Shipping:        o.Shipping.InexactFloat64(),
		Tax:             o.Tax.InexactFloat64(),
		Total:           o.Total.InexactFloat64(),
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		CryptoCurrency:  o.CryptoCurrency,
		ShippingAddress: o.ShippingAddress,
		TrackingNumber:  o.TrackingNumber,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Items:           make([]ItemView, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, ItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			ShopID:    it.ShopID,
			Name:      it.Name,
			Image:     it.Image,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
		})
	}
	return v
}

// AdminView includes buyer contact details and admin notes.
func (o *Order) AdminView() View {
	v := o.base()
	v.AdminNotes = o.AdminNotes
	if o.Buyer != nil {
		v.User = &BuyerView{ID: o.Buyer.ID, Name: o.Buyer.Name, Email: o.Buyer.Email, Phone: o.Buyer.Phone}
	}
	return v
}

func (o *Order) CustomerView() View { return o.base() }

// SellerView expects Items already narrowed to the seller's shop. Total stays
// the full order total; ShopSubtotal is the shop's share.
func (o *Order) SellerView() View {
	v := o.base()
	if o.Buyer != nil {
		v.User = &BuyerView{ID: o.Buyer.ID, Name: o.Buyer.Name, Email: o.Buyer.Email}
	}
	share := o.ShopSubtotal().InexactFloat64()
	v.ShopSubtotal = &share
	return v
}

// ShopSubtotal sums price x quantity over the loaded items.
func (o *Order) ShopSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func Views(list []Order, view func(*Order) View) []View {
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, view(&list[i]))
	}
	return out
}
