package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.Querier }

const orderColumns = `o.id, o.order_number, o.user_id, o.subtotal, o.shipping, o.tax, o.total,
	o.status, o.payment_status, o.payment_method, o.crypto_currency, o.crypto_address_id,
	o.shipping_address, o.tracking_number, o.admin_notes, o.paid_at, o.shipped_at, o.delivered_at,
	o.version, o.created_at, o.updated_at, u.name, u.email, u.phone`

const orderFrom = ` FROM orders o JOIN users u ON u.id = o.user_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o    Order
		b    Buyer
		addr []byte
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.CryptoCurrency, &o.CryptoAddressID,
		&addr, &o.TrackingNumber, &o.AdminNotes, &o.PaidAt, &o.ShippedAt, &o.DeliveredAt,
		&o.Version, &o.CreatedAt, &o.UpdatedAt, &b.Name, &b.Email, &b.Phone)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		o.ShippingAddress = addr
	}
	b.ID = o.UserID
	o.Buyer = &b
	return &o, nil
}

// isUUID reports whether id can be bound to a UUID column. Anything else
// cannot match a row.
func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+orderFrom+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	items, err := r.loadItems(ctx, []string{o.ID}, "")
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// updateStatement builds the versioned UPDATE for ch. $1 is the order id and
// $2 the expected version.
func updateStatement(id string, version int, ch Changes) (string, []any) {
	sets := []string{"version = version + 1", "updated_at = now()"}
	args := []any{id, version}
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if ch.Status != nil {
		set("status", string(*ch.Status))
	}
	if ch.PaymentStatus != nil {
		set("payment_status", string(*ch.PaymentStatus))
	}
	if ch.PaidAt != nil {
		set("paid_at", *ch.PaidAt)
	}
	if ch.ShippedAt != nil {
		set("shipped_at", *ch.ShippedAt)
	}
	if ch.DeliveredAt != nil {
		set("delivered_at", *ch.DeliveredAt)
	}
	if ch.TrackingNumber.Set {
		set("tracking_number", ch.TrackingNumber.Value)
	}
	if ch.AdminNotes.Set {
		set("admin_notes", ch.AdminNotes.Value)
	}
	return `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id=$1 AND version=$2`, args
}

// ApplyChanges writes ch in one UPDATE guarded by the version the caller
// planned against. A stale version yields ErrConflict.
func (r *Repo) ApplyChanges(ctx context.Context, id string, version int, ch Changes) (*Order, error) {
	if !isUUID(id) {
		return nil, ErrNotFound
	}
	q, args := updateStatement(id, version, ch)
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return nil, ErrConflict
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var addr any
	if len(o.ShippingAddress) > 0 {
		addr = string(o.ShippingAddress)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, subtotal, shipping, tax, total,
			status, payment_status, payment_method, crypto_currency, crypto_address_id,
			shipping_address, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::jsonb,$14,$15,$16)`,
		o.ID, o.OrderNumber, o.UserID, o.Subtotal, o.Shipping, o.Tax, o.Total,
		string(o.Status), string(o.PaymentStatus), string(o.PaymentMethod), o.CryptoCurrency, o.CryptoAddressID,
		addr, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, shop_id, name, image, price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, o.ID, it.ProductID, it.ShopID, it.Name, it.Image, it.Price, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ProductSnapshots loads the products named by ids. An id that is not a UUID
// is a validation error.
func (r *Repo) ProductSnapshots(ctx context.Context, ids []string) (map[string]ProductSnapshot, error) {
	for _, id := range ids {
		if !isUUID(id) {
			return nil, fmt.Errorf("%w: product not found: %s", ErrValidation, id)
		}
	}
	rows, err := r.DB.Query(ctx, `SELECT id, shop_id, name, price, image FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]ProductSnapshot, len(ids))
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Price, &p.Image); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// loadItems returns the items of orderIDs keyed by order id, limited to one
// shop when shopID is set.
func (r *Repo) loadItems(ctx context.Context, orderIDs []string, shopID string) (map[string][]OrderItem, error) {
	q, args := itemsQuery(orderIDs, shopID)
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	out := map[string][]OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ShopID, &it.Name, &it.Image, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func itemsQuery(orderIDs []string, shopID string) (string, []any) {
	q := `SELECT id, order_id, product_id, shop_id, name, image, price, quantity
		FROM order_items WHERE order_id = ANY($1::uuid[])`
	args := []any{orderIDs}
	if shopID != "" {
		q += ` AND shop_id = $2`
		args = append(args, shopID)
	}
	return q + ` ORDER BY order_id, name`, args
}
