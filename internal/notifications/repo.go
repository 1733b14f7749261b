package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.Querier }

const columns = `id, user_id, title, message, type, link, is_read, created_at, source_event_id, kind`

func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func scan(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Link, &n.IsRead, &n.CreatedAt, &n.SourceEventID, &n.Kind)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts n. A row with the same (source_event_id, kind) is left in
// place and reported as inserted=false.
func (r *Repo) Create(ctx context.Context, n *Notification) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, user_id, title, message, type, link, is_read, created_at, source_event_id, kind)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (source_event_id, kind) DO NOTHING`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Link, n.IsRead, n.CreatedAt, n.SourceEventID, n.Kind,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]Notification, error) {
	q := `SELECT ` + columns + ` FROM notifications WHERE user_id=$1`
	if unreadOnly {
		q += ` AND is_read = false`
	}
	rows, err := r.DB.Query(ctx, q+` ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *Repo) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read = false`, userID).Scan(&n)
	return n, err
}

func (r *Repo) Get(ctx context.Context, id string) (*Notification, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	n, err := scan(r.DB.QueryRow(ctx, `SELECT `+columns+` FROM notifications WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	return n, nil
}

func (r *Repo) SetRead(ctx context.Context, id string, read bool) (*Notification, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	n, err := scan(r.DB.QueryRow(ctx,
		`UPDATE notifications SET is_read=$2 WHERE id=$1 RETURNING `+columns, id, read))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	return n, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	ct, err := r.DB.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE notifications SET is_read = true WHERE user_id=$1 AND is_read = false`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return ct.RowsAffected(), nil
}
