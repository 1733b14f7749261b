package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
	StatusBanned    = "BANNED"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         auth.Role
	Status       string
}

type Shop struct {
	ID     string
	Name   string
	Slug   string
	Status string
}

type Repo struct{ DB postgres.Querier }

func (r *Repo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT id, email, password, name, role, status FROM users WHERE email=$1`, email)
}

func (r *Repo) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT id, email, password, name, role, status FROM users WHERE id=$1`, id)
}

func (r *Repo) findOne(ctx context.Context, q string, arg any) (*User, error) {
	var u User
	var role string
	err := r.DB.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

// ShopForOwner returns the shop owned by userID.
func (r *Repo) ShopForOwner(ctx context.Context, userID string) (*Shop, error) {
	var s Shop
	err := r.DB.QueryRow(ctx, `SELECT id, name, slug, status FROM shops WHERE owner_id=$1`, userID).
		Scan(&s.ID, &s.Name, &s.Slug, &s.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query shop: %w", err)
	}
	return &s, nil
}
