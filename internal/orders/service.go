package orders

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const PageSize = 20

var taxRate = decimal.NewFromFloat(0.1)

type Store interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	ApplyChanges(ctx context.Context, id string, version int, ch Changes) (*Order, error)
	CreateOrder(ctx context.Context, o *Order) error
	ProductSnapshots(ctx context.Context, ids []string) (map[string]ProductSnapshot, error)
	ListOrders(ctx context.Context, f ListFilter, limit, offset int) ([]Order, error)
	CountOrders(ctx context.Context, f ListFilter) (int, error)
}

type Events interface {
	OrderPlaced(ctx context.Context, p OrderPlacedPayload) error
	StatusChanged(ctx context.Context, p StatusChangedPayload) error
}

type Service struct {
	Store  Store
	Events Events
	Logger *zap.SugaredLogger
	Now    func() time.Time
}

func NewService(store Store, events Events, logger *zap.SugaredLogger) *Service {
	return &Service{Store: store, Events: events, Logger: logger, Now: time.Now}
}

// Update applies an admin edit. The status-changed event is best effort: a
// publish failure is logged and the update still succeeds.
func (s *Service) Update(ctx context.Context, id string, u Update) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	ch, err := Plan(o, u, now)
	if err != nil {
		return nil, err
	}
	if ch.Empty() {
		return o, nil
	}

	updated, err := s.Store.ApplyChanges(ctx, o.ID, o.Version, ch)
	if err != nil {
		return nil, err
	}

	if ch.Status != nil || ch.PaymentStatus != nil {
		p := NewStatusChanged(o.Status, o.PaymentStatus, updated, now)
		if err := s.Events.StatusChanged(ctx, p); err != nil {
			s.Logger.Errorw("publish status change failed",
				"order_id", o.ID, "status", updated.Status, "payment_status", updated.PaymentStatus, "error", err)
		}
	}
	return updated, nil
}

// Approve confirms a manual payment: payment COMPLETED, order PROCESSING.
func (s *Service) Approve(ctx context.Context, id string) (*Order, error) {
	status, payment := StatusProcessing, PaymentCompleted
	return s.Update(ctx, id, Update{Status: &status, PaymentStatus: &payment})
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Store.GetOrder(ctx, id)
}

// GetOwned returns the order only when userID bought it.
func (s *Service) GetOwned(ctx context.Context, userID, id string) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

type Page struct {
	Orders []Order
	Page   int
	Total  int
	Pages  int
}

// List runs the page query and the count query concurrently.
func (s *Service) List(ctx context.Context, f ListFilter, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	var (
		list  []Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.Store.ListOrders(gctx, f, PageSize, (page-1)*PageSize)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.Store.CountOrders(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}
	return Page{
		Orders: list,
		Page:   page,
		Total:  total,
		Pages:  (total + PageSize - 1) / PageSize,
	}, nil
}

type CheckoutItem struct {
	ProductID string
	Quantity  int
}

type Checkout struct {
	Items           []CheckoutItem
	Address         json.RawMessage
	PaymentMethod   string // cod | card | crypto
	CryptoType      string
	CryptoAddressID string
}

// Place creates a PENDING_PAYMENT order for userID. Prices, names and images
// are copied from the catalog; tax is 10% of the subtotal and shipping is free.
func (s *Service) Place(ctx context.Context, userID string, c Checkout) (*Order, error) {
	if len(c.Items) == 0 {
		return nil, fmt.Errorf("%w: no items in order", ErrValidation)
	}
	method, crypto, err := resolveMethod(c.PaymentMethod, c.CryptoType)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: each item needs productId and quantity > 0", ErrValidation)
		}
		ids = append(ids, it.ProductID)
	}
	products, err := s.Store.ProductSnapshots(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	o := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(now),
		UserID:          userID,
		Shipping:        decimal.Zero,
		Status:          StatusPendingPayment,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		ShippingAddress: c.Address,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if crypto {
		cur := string(method)
		o.CryptoCurrency = &cur
		if c.CryptoAddressID != "" {
			addr := c.CryptoAddressID
			o.CryptoAddressID = &addr
		}
	}

	subtotal := decimal.Zero
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product not found: %s", ErrValidation, it.ProductID)
		}
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.NewString(),
			OrderID:   o.ID,
			ProductID: p.ID,
			ShopID:    p.ShopID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Shipping).Add(o.Tax)

	if err := s.Store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}

	err = s.Events.OrderPlaced(ctx, OrderPlacedPayload{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
	})
	if err != nil {
		s.Logger.Errorw("publish order placed failed", "order_id", o.ID, "error", err)
	}
	return o, nil
}

func resolveMethod(method, cryptoType string) (PaymentMethod, bool, error) {
	switch strings.ToLower(method) {
	case "cod":
		return MethodCashOnDelivery, false, nil
	case "card":
		return MethodBankTransfer, false, nil
	case "crypto":
		m := PaymentMethod(strings.ToUpper(cryptoType))
		if !m.Crypto() {
			return "", false, fmt.Errorf("%w: unsupported crypto type %q", ErrValidation, cryptoType)
		}
		return m, true, nil
	}
	return "", false, fmt.Errorf("%w: unsupported payment method %q", ErrValidation, method)
}

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns ORD-<unix millis>-<7 random base36 chars>.
func NewOrderNumber(now time.Time) string {
	var b strings.Builder
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := 0; i < 7; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b.WriteByte(numberAlphabet[n.Int64()])
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), b.String())
}
