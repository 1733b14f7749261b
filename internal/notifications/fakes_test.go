package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]Notification
	failing error
}

func newMemStore() *memStore { return &memStore{rows: map[string]Notification{}} }

func (s *memStore) Create(_ context.Context, n *Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return false, s.failing
	}
	if n.SourceEventID != nil && n.Kind != nil {
		for _, r := range s.rows {
			if r.SourceEventID != nil && r.Kind != nil && *r.SourceEventID == *n.SourceEventID && *r.Kind == *n.Kind {
				return false, nil
			}
		}
	}
	s.rows[n.ID] = *n
	return true, nil
}

func (s *memStore) List(_ context.Context, userID string, limit int, unreadOnly bool) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Notification{}
	for _, r := range s.rows {
		if r.UserID != userID || (unreadOnly && r.IsRead) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.UserID == userID && !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Get(_ context.Context, id string) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *memStore) SetRead(_ context.Context, id string, read bool) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.IsRead = read
	s.rows[id] = r
	return &r, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) MarkAllRead(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.rows {
		if r.UserID == userID && !r.IsRead {
			r.IsRead = true
			s.rows[id] = r
			n++
		}
	}
	return n, nil
}

func (s *memStore) all() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

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
