// Package sqlite is the embedded order/item backend. It keeps both tables in
// one WAL-mode database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    seq                 INTEGER PRIMARY KEY AUTOINCREMENT,
    id                  TEXT    NOT NULL UNIQUE,
    user_id             TEXT    NOT NULL,
    item_ids            TEXT    NOT NULL DEFAULT '[]',
    amount              REAL    NOT NULL CHECK (amount >= 0),
    line1               TEXT    NOT NULL DEFAULT '',
    city                TEXT    NOT NULL DEFAULT '',
    state               TEXT    NOT NULL DEFAULT '',
    postal_code         TEXT    NOT NULL DEFAULT '',
    country             TEXT    NOT NULL DEFAULT '',
    payment             INTEGER NOT NULL DEFAULT 0,
    cancelled           INTEGER NOT NULL DEFAULT 0,
    status              TEXT    NOT NULL,
    checkout_session_id TEXT    NOT NULL DEFAULT '',
    date                TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user_date ON orders(user_id, date);
CREATE INDEX IF NOT EXISTS idx_orders_flags ON orders(cancelled, payment);

CREATE TABLE IF NOT EXISTS order_items (
    seq           INTEGER PRIMARY KEY AUTOINCREMENT,
    id            TEXT    NOT NULL UNIQUE,
    order_id      TEXT    NOT NULL,
    item_id       TEXT    NOT NULL DEFAULT '',
    name          TEXT    NOT NULL,
    price         REAL    NOT NULL CHECK (price >= 0),
    quantity      INTEGER NOT NULL CHECK (quantity >= 1),
    restaurant_id TEXT    NOT NULL,
    status        TEXT    NOT NULL DEFAULT '',
    created_at    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_restaurant ON order_items(restaurant_id, created_at);
`

// DB holds the shared connection for both repositories.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	db, err := sqlite.Open("./data/orders.db")
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	// One writer; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Orders() *OrderRepository {
	return &OrderRepository{db: d.db}
}

func (d *DB) Items() *ItemRepository {
	return &ItemRepository{db: d.db}
}

// where accumulates SQL conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
