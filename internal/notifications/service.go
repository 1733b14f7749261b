package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Store interface {
	Create(ctx context.Context, n *Notification) (bool, error)
	List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Get(ctx context.Context, id string) (*Notification, error)
	SetRead(ctx context.Context, id string, read bool) (*Notification, error)
	Delete(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// Inbox serves a user's own notifications.
type Inbox struct {
	Store Store
	Now   func() time.Time
}

func NewInbox(store Store) *Inbox {
	return &Inbox{Store: store, Now: time.Now}
}

type Listing struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

func (s *Inbox) List(ctx context.Context, userID string, limit int, unreadOnly bool) (Listing, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	var out Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Notifications, err = s.Store.List(gctx, userID, limit, unreadOnly)
		return err
	})
	g.Go(func() error {
		var err error
		out.UnreadCount, err = s.Store.CountUnread(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Listing{}, err
	}
	return out, nil
}

// Send creates a manual notification for n.UserID.
func (s *Inbox) Send(ctx context.Context, n Notification) (*Notification, error) {
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.UserID == "" || n.Title == "" || n.Message == "" || n.Type == "" {
		return nil, fmt.Errorf("%w: userId, title, message, and type are required", ErrValidation)
	}
	if !n.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, n.Type)
	}
	if n.Link != nil && *n.Link == "" {
		n.Link = nil
	}
	n.ID = uuid.NewString()
	n.IsRead = false
	n.CreatedAt = s.Now()
	n.SourceEventID, n.Kind = nil, nil
	if _, err := s.Store.Create(ctx, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Inbox) owned(ctx context.Context, userID, id string) error {
	n, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Inbox) SetRead(ctx context.Context, userID, id string, read bool) (*Notification, error) {
	if err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.Store.SetRead(ctx, id, read)
}

func (s *Inbox) Delete(ctx context.Context, userID, id string) error {
	if err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Store.Delete(ctx, id)
}

func (s *Inbox) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.Store.MarkAllRead(ctx, userID)
	return err
}
