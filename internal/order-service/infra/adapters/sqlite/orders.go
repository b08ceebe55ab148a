package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jcmexdev/food-orders/internal/order-service/core/domain"
	"github.com/jcmexdev/food-orders/internal/order-service/core/ports"
)

var _ ports.OrderRepository = (*OrderRepository)(nil)

const orderColumns = `id, user_id, item_ids, amount, line1, city, state, postal_code, country,
	payment, cancelled, status, checkout_session_id, date`

type OrderRepository struct {
	db *sql.DB
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	ids, err := json.Marshal(nonNil(o.ItemIDs))
	if err != nil {
		return fmt.Errorf("sqlite: encode item ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, string(ids), o.Amount,
		o.Address.Line1, o.Address.City, o.Address.State, o.Address.PostalCode, o.Address.Country,
		boolInt(o.Payment), boolInt(o.Cancelled), o.Status, o.CheckoutSessionID, formatTime(o.Date),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return getOrder(ctx, r.db, id)
}

func getOrder(ctx context.Context, q rowQuerier, id string) (*domain.Order, error) {
	row := q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}
	return o, nil
}

func (r *OrderRepository) Find(ctx context.Context, f domain.OrderFilter, page domain.PageRequest) ([]domain.Order, error) {
	w := orderWhere(f)
	q := `SELECT ` + orderColumns + ` FROM orders` + w.String() + ` ORDER BY date DESC, seq DESC`
	args := w.args
	if page.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Skip())
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) Count(ctx context.Context, f domain.OrderFilter) (int64, error) {
	w := orderWhere(f)
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count orders: %w", err)
	}
	return n, nil
}

// Update reads the row, applies u and writes it back inside one transaction.
func (r *OrderRepository) Update(ctx context.Context, id string, u domain.OrderUpdate) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	o, err := getOrder(ctx, tx, id)
	if err != nil || o == nil {
		return nil, err
	}
	u.Apply(o)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	ids, err := json.Marshal(nonNil(o.ItemIDs))
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode item ids: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE orders
		SET item_ids = ?, amount = ?, payment = ?, cancelled = ?, status = ?, checkout_session_id = ?
		WHERE id = ?`,
		string(ids), o.Amount, boolInt(o.Payment), boolInt(o.Cancelled), o.Status, o.CheckoutSessionID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update order %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	o, err := getOrder(ctx, tx, id)
	if err != nil || o == nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("sqlite: delete order %q: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) SumAmount(ctx context.Context, f domain.OrderFilter) (domain.Revenue, error) {
	w := orderWhere(f)
	var rev domain.Revenue
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM orders`+w.String(), w.args...,
	).Scan(&rev.TotalRevenue, &rev.TotalOrders)
	if err != nil {
		return domain.Revenue{}, fmt.Errorf("sqlite: sum order amount: %w", err)
	}
	return rev, nil
}

func orderWhere(f domain.OrderFilter) *where {
	w := &where{}
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.Payment != nil {
		w.add("payment = ?", boolInt(*f.Payment))
	}
	if f.Cancelled != nil {
		w.add("cancelled = ?", boolInt(*f.Cancelled))
	}
	if f.From != nil {
		w.add("date >= ?", formatTime(*f.From))
	}
	if f.To != nil {
		w.add("date <= ?", formatTime(*f.To))
	}
	return w
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	var (
		o                  domain.Order
		itemIDs, date      string
		payment, cancelled int
	)
	err := scan(&o.ID, &o.UserID, &itemIDs, &o.Amount,
		&o.Address.Line1, &o.Address.City, &o.Address.State, &o.Address.PostalCode, &o.Address.Country,
		&payment, &cancelled, &o.Status, &o.CheckoutSessionID, &date)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemIDs), &o.ItemIDs); err != nil {
		return nil, fmt.Errorf("decode item ids: %w", err)
	}
	o.Payment = payment == 1
	o.Cancelled = cancelled == 1
	if o.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	return &o, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
