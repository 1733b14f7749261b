package orders

import (
	"context"
	"fmt"
	"strings"
)

func (f ListFilter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("o.status = $%d", string(f.Status))
	}
	if f.PaymentStatus != "" {
		add("o.payment_status = $%d", string(f.PaymentStatus))
	}
	if f.PaymentMethod != "" {
		add("o.payment_method = $%d", string(f.PaymentMethod))
	}
	if f.UserID != "" {
		add("o.user_id = $%d", f.UserID)
	}
	if f.ShopID != "" {
		add("EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.shop_id = $%d)", f.ShopID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// listQuery pages the orders matching f, newest first.
func listQuery(f ListFilter, limit, offset int) (string, []any) {
	where, args := f.where()
	args = append(args, limit, offset)
	return `SELECT ` + orderColumns + orderFrom + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter, limit, offset int) ([]Order, error) {
	q, args := listQuery(f, limit, offset)
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var (
		out []Order
		ids []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.loadItems(ctx, ids, f.ShopID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repo) CountOrders(ctx context.Context, f ListFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
