package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const KeyMaintenanceMode = "maintenance_mode"

var ErrNotFound = errors.New("setting not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value, typ string) error
}

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type Repo struct{ DB postgres.Querier }

func (r *Repo) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := r.DB.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query setting: %w", err)
	}
	return v, nil
}

func (r *Repo) Put(ctx context.Context, key, value, typ string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO settings(key, value, type, updated_at) VALUES ($1,$2,$3,now())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, type=EXCLUDED.type, updated_at=now()`,
		key, value, typ)
	if err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}
	return nil
}

// Maintenance reads the maintenance flag through a Redis copy that expires
// after TTL. Writes go to the store and drop the cached copy.
type Maintenance struct {
	Store  Store
	Cache  Cache
	TTL    time.Duration
	Logger *zap.SugaredLogger
}

func NewMaintenance(store Store, cache Cache, ttl time.Duration, logger *zap.SugaredLogger) *Maintenance {
	return &Maintenance{Store: store, Cache: cache, TTL: ttl, Logger: logger}
}

// Enabled reports the flag. Any read failure counts as disabled so the
// storefront stays reachable.
func (m *Maintenance) Enabled(ctx context.Context) bool {
	if v, ok, err := m.Cache.Get(ctx, redisx.KeyMaintenanceMode); err == nil && ok {
		return v == "true"
	} else if err != nil {
		m.Logger.Warnw("maintenance cache read failed", "error", err)
	}

	v, err := m.Store.Get(ctx, KeyMaintenanceMode)
	if errors.Is(err, ErrNotFound) {
		v = "false"
	} else if err != nil {
		m.Logger.Errorw("maintenance flag read failed", "error", err)
		return false
	}
	on, _ := strconv.ParseBool(v)
	if err := m.Cache.Set(ctx, redisx.KeyMaintenanceMode, strconv.FormatBool(on), m.TTL); err != nil {
		m.Logger.Warnw("maintenance cache write failed", "error", err)
	}
	return on
}

func (m *Maintenance) SetEnabled(ctx context.Context, on bool) error {
	if err := m.Store.Put(ctx, KeyMaintenanceMode, strconv.FormatBool(on), "boolean"); err != nil {
		return err
	}
	return m.Invalidate(ctx)
}

// Invalidate drops the cached flag; the next read goes to the store.
func (m *Maintenance) Invalidate(ctx context.Context) error {
	if err := m.Cache.Del(ctx, redisx.KeyMaintenanceMode); err != nil {
		return fmt.Errorf("invalidate maintenance cache: %w", err)
	}
	return nil
}
