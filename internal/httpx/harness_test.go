package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/notifications"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// memOrders is an in-memory orders.Store.
type memOrders struct {
	mu       sync.Mutex
	rows     map[string]orders.Order
	products map[string]orders.ProductSnapshot
}

func (s *memOrders) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &o, nil
}

func (s *memOrders) ApplyChanges(_ context.Context, id string, version int, ch orders.Changes) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.rows[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if o.Version != version {
		return nil, orders.ErrConflict
	}
	o = orders.Apply(o, ch)
	o.Version++
	s.rows[id] = o
	return &o, nil
}

func (s *memOrders) CreateOrder(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[o.ID] = *o
	return nil
}

func (s *memOrders) ProductSnapshots(_ context.Context, ids []string) (map[string]orders.ProductSnapshot, error) {
	out := map[string]orders.ProductSnapshot{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memOrders) match(f orders.ListFilter) []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.rows {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.ShopID != "" {
			var items []orders.OrderItem
			for _, it := range o.Items {
				if it.ShopID != nil && *it.ShopID == f.ShopID {
					items = append(items, it)
				}
			}
			if len(items) == 0 {
				continue
			}
			o.Items = items
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memOrders) ListOrders(_ context.Context, f orders.ListFilter, limit, offset int) ([]orders.Order, error) {
	out := s.match(f)
	if offset >= len(out) {
		return nil, nil
	}
	if end := offset + limit; end < len(out) {
		out = out[:end]
	}
	return out[offset:], nil
}

func (s *memOrders) CountOrders(_ context.Context, f orders.ListFilter) (int, error) {
	return len(s.match(f)), nil
}

// memNotes is an in-memory notifications.Store.
type memNotes struct {
	mu   sync.Mutex
	rows []notifications.Notification
}

func (s *memNotes) Create(_ context.Context, n *notifications.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if n.SourceEventID != nil && r.SourceEventID != nil && *r.SourceEventID == *n.SourceEventID && *r.Kind == *n.Kind {
			return false, nil
		}
	}
	s.rows = append(s.rows, *n)
	return true, nil
}

func (s *memNotes) forUser(userID string) []notifications.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notifications.Notification
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

func (s *memNotes) List(_ context.Context, userID string, limit int, unreadOnly bool) ([]notifications.Notification, error) {
	out := []notifications.Notification{}
	for _, r := range s.forUser(userID) {
		if unreadOnly && r.IsRead {
			continue
		}
		out = append(out, r)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memNotes) CountUnread(_ context.Context, userID string) (int, error) {
	n := 0
	for _, r := range s.forUser(userID) {
		if !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *memNotes) Get(_ context.Context, id string) (*notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, notifications.ErrNotFound
}

func (s *memNotes) SetRead(_ context.Context, id string, read bool) (*notifications.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].IsRead = read
			n := s.rows[i]
			return &n, nil
		}
	}
	return nil, notifications.ErrNotFound
}

func (s *memNotes) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return notifications.ErrNotFound
}

func (s *memNotes) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.rows {
		if s.rows[i].UserID == userID && !s.rows[i].IsRead {
			s.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// directPublisher hands every message straight to a consumer handler, standing
// in for the broker.
type directPublisher struct {
	topic string
	h     func(ctx context.Context, m kafkago.Message) error
}

func (p *directPublisher) Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error {
	return p.h(ctx, kafkago.Message{Topic: p.topic, Key: key, Value: value, Headers: headers})
}

type fakeMaintenance struct{ on bool }

func (m *fakeMaintenance) Enabled(context.Context) bool { return m.on }

func (m *fakeMaintenance) SetEnabled(_ context.Context, on bool) error {
	m.on = on
	return nil
}

type fakeUsers struct {
	byID    map[string]*users.User
	byEmail map[string]*users.User
	shops   map[string]*users.Shop
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*users.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*users.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeUsers) ShopForOwner(_ context.Context, userID string) (*users.Shop, error) {
	if s, ok := f.shops[userID]; ok {
		return s, nil
	}
	return nil, users.ErrNotFound
}

type harness struct {
	router *chi.Mux
	orders *memOrders
	notes  *memNotes
	tokens *auth.Issuer
	maint  *fakeMaintenance
	users  *fakeUsers
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop().Sugar()
	h := &harness{
		orders: &memOrders{rows: map[string]orders.Order{}, products: map[string]orders.ProductSnapshot{}},
		notes:  &memNotes{},
		tokens: auth.NewIssuer("test-secret", time.Hour),
		maint:  &fakeMaintenance{},
		users:  &fakeUsers{byID: map[string]*users.User{}, byEmail: map[string]*users.User{}, shops: map[string]*users.Shop{}},
	}
	for _, c := range []caller{admin, manager, buyer, stranger, seller} {
		h.users.byID[c.userID] = &users.User{ID: c.userID, Email: c.userID + "@example.com", Role: c.role, Status: users.StatusActive}
	}

	dispatcher := notifications.NewDispatcher(h.notes, &memCache{data: map[string]string{}}, logger, "notifier")
	events := &orders.KafkaEvents{
		Placed:   &directPublisher{topic: orders.TopicOrderPlaced, h: dispatcher.HandleMessage},
		Changed:  &directPublisher{topic: orders.TopicOrderStatusChanged, h: dispatcher.HandleMessage},
		Producer: "storefront-api",
	}
	svc := orders.NewService(h.orders, events, logger)

	g := &Guard{Tokens: h.tokens, Users: h.users, Maintenance: h.maint, Logger: logger}
	h.router = NewRouter(logger, nil)
	(&AuthHandler{Users: h.users, Tokens: h.tokens, Logger: logger}).Register(h.router, g)
	(&OrdersHandler{Orders: svc, Idem: &memCache{data: map[string]string{}}, Logger: logger}).Register(h.router, g)
	(&SellerHandler{Orders: svc, Shops: h.users, Logger: logger}).Register(h.router, g)
	(&NotificationsHandler{Inbox: notifications.NewInbox(h.notes), Logger: logger}).Register(h.router, g)
	(&SettingsHandler{Maintenance: h.maint, Logger: logger}).Register(h.router, g)
	return h
}

type caller struct {
	userID string
	role   auth.Role
}

var (
	anonymous = caller{}
	admin     = caller{userID: "admin-1", role: auth.RoleAdmin}
	manager   = caller{userID: "manager-1", role: auth.RoleManager}
	buyer     = caller{userID: "buyer-1", role: auth.RoleUser}
	stranger  = caller{userID: "buyer-2", role: auth.RoleUser}
	seller    = caller{userID: "seller-1", role: auth.RoleUser}
)

func (h *harness) do(t *testing.T, as caller, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if as.userID != "" {
		tok, err := h.tokens.Issue(as.userID, as.userID+"@example.com", as.role)
		if err != nil {
			t.Fatal(err)
		}
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}
