package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.ItemRepository = (*ItemRepository)(nil)

const itemColumns = `id, order_id, item_id, name, price, quantity, restaurant_id, status, created_at`

type ItemRepository struct {
	db *sql.DB
}

// InsertMany writes the batch in a single transaction.
func (r *ItemRepository) InsertMany(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO order_items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	out := make([]domain.OrderItem, len(items))
	for i, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		_, err := stmt.ExecContext(ctx, it.ID, it.OrderID, it.ItemID, it.Name, it.Price, it.Quantity,
			it.RestaurantID, it.Status, formatTime(it.CreatedAt))
		if err != nil {
			return nil, fmt.Errorf("sqlite: insert order item %d: %w", i, err)
		}
		out[i] = it
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return out, nil
}

func (r *ItemRepository) Get(ctx context.Context, id string) (*domain.OrderItem, error) {
	return getItem(ctx, r.db, id)
}

func getItem(ctx context.Context, q rowQuerier, id string) (*domain.OrderItem, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM order_items WHERE id = ?`, id)
	it, err := scanItem(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order item %q: %w", id, err)
	}
	return it, nil
}

// GetMany returns the items in the order of ids, skipping unknown ids.
func (r *ItemRepository) GetMany(ctx context.Context, ids []string) ([]domain.OrderItem, error) {
	if len(ids) == 0 {
		return []domain.OrderItem{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order items: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.OrderItem, len(ids))
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order item: %w", err)
		}
		byID[it.ID] = *it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.OrderItem, 0, len(byID))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *ItemRepository) Find(ctx context.Context, f domain.ItemFilter, page domain.PageRequest) ([]domain.OrderItem, error) {
	w := itemWhere(f)
	q := `SELECT ` + itemColumns + ` FROM order_items` + w.String() + ` ORDER BY created_at DESC, seq DESC`
	args := w.args
	if page.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Skip())
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		it, err := scanItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (r *ItemRepository) Count(ctx context.Context, f domain.ItemFilter) (int64, error) {
	w := itemWhere(f)
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count order items: %w", err)
	}
	return n, nil
}

func (r *ItemRepository) Update(ctx context.Context, id string, u domain.ItemUpdate) (*domain.OrderItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	it, err := getItem(ctx, tx, id)
	if err != nil || it == nil {
		return nil, err
	}
	u.Apply(it)
	if err := it.Validate(); err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `UPDATE order_items SET name = ?, price = ?, quantity = ?, status = ? WHERE id = ?`,
		it.Name, it.Price, it.Quantity, it.Status, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update order item %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return it, nil
}

// UpdateMany sets only the fields present in u on every matching row.
func (r *ItemRepository) UpdateMany(ctx context.Context, f domain.ItemFilter, u domain.ItemUpdate) (int64, error) {
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *u.Name)
	}
	if u.Price != nil {
		sets, args = append(sets, "price = ?"), append(args, *u.Price)
	}
	if u.Quantity != nil {
		sets, args = append(sets, "quantity = ?"), append(args, *u.Quantity)
	}
	if u.Status != nil {
		sets, args = append(sets, "status = ?"), append(args, *u.Status)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	w := itemWhere(f)
	q := `UPDATE order_items SET ` + strings.Join(sets, ", ")
	res, err := r.db.ExecContext(ctx, q+w.String(), append(args, w.args...)...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: update order items: %w", err)
	}
	return res.RowsAffected()
}

func (r *ItemRepository) Delete(ctx context.Context, id string) (*domain.OrderItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	it, err := getItem(ctx, tx, id)
	if err != nil || it == nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: delete order item %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return it, nil
}

func (r *ItemRepository) DeleteMany(ctx context.Context, f domain.ItemFilter) (int64, error) {
	w := itemWhere(f)
	res, err := r.db.ExecContext(ctx, `DELETE FROM order_items`+w.String(), w.args...)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete order items: %w", err)
	}
	return res.RowsAffected()
}

func (r *ItemRepository) Totals(ctx context.Context, f domain.ItemFilter) (domain.ItemTotals, error) {
	w := itemWhere(f)
	var t domain.ItemTotals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(price * quantity), 0), COALESCE(SUM(quantity), 0) FROM order_items`+w.String(),
		w.args...,
	).Scan(&t.Revenue, &t.Quantity)
	if err != nil {
		return domain.ItemTotals{}, fmt.Errorf("sqlite: item totals: %w", err)
	}
	return t, nil
}

func itemWhere(f domain.ItemFilter) *where {
	w := &where{}
	if f.OrderID != "" {
		w.add("order_id = ?", f.OrderID)
	}
	if f.RestaurantID != "" {
		w.add("restaurant_id = ?", f.RestaurantID)
	}
	if f.ItemID != "" {
		w.add("item_id = ?", f.ItemID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.From != nil {
		w.add("created_at >= ?", formatTime(*f.From))
	}
	if f.To != nil {
		w.add("created_at <= ?", formatTime(*f.To))
	}
	return w
}

func scanItem(scan func(dest ...any) error) (*domain.OrderItem, error) {
	var (
		it        domain.OrderItem
		createdAt string
	)
	err := scan(&it.ID, &it.OrderID, &it.ItemID, &it.Name, &it.Price, &it.Quantity,
		&it.RestaurantID, &it.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &it, nil
}
