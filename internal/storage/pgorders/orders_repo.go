package pgorders

import (
	"context"
	"encoding/json"

	"github.com/BearBump/courierlive/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) CreateOrder(ctx context.Context, o *models.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "marshal order")
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO orders (id, order_id, doc, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`, o.ID, o.OrderID, doc, o.CreatedAt, o.UpdatedAt)
	return mapErr(err, "insert order")
}

// ListOrders returns every order, newest first.
func (s *Storage) ListOrders(ctx context.Context) ([]*models.Order, error) {
	rows, err := s.db.Query(ctx, `SELECT doc FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, mapErr(err, "select orders")
	}
	defer rows.Close()

	out := make([]*models.Order, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, mapErr(err, "scan order")
		}
		o, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, mapErr(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.getBy(ctx, "id", id)
}

func (s *Storage) GetOrderByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return s.getBy(ctx, "order_id", orderID)
}

func (s *Storage) UpdateOrder(ctx context.Context, id string, mutate func(*models.Order) error) (*models.Order, error) {
	return s.updateBy(ctx, "id", id, mutate)
}

func (s *Storage) UpdateOrderByOrderID(ctx context.Context, orderID string, mutate func(*models.Order) error) (*models.Order, error) {
	return s.updateBy(ctx, "order_id", orderID, mutate)
}

// column is always one of the two fixed key names above.
func (s *Storage) getBy(ctx context.Context, column, value string) (*models.Order, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM orders WHERE `+column+` = $1`, value).Scan(&doc)
	if err != nil {
		return nil, mapErr(err, "select order "+value)
	}
	return decode(doc)
}

// updateBy locks the row so concurrent status writes append in turn.
func (s *Storage) updateBy(ctx context.Context, column, value string, mutate func(*models.Order) error) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, mapErr(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var doc []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM orders WHERE `+column+` = $1 FOR UPDATE`, value).Scan(&doc)
	if err != nil {
		return nil, mapErr(err, "select order "+value)
	}
	o, err := decode(doc)
	if err != nil {
		return nil, err
	}
	id, orderID := o.ID, o.OrderID

	if err := mutate(o); err != nil {
		return nil, err
	}
	o.ID, o.OrderID = id, orderID

	next, err := json.Marshal(o)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order")
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET doc = $2, updated_at = $3 WHERE id = $1`, id, next, o.UpdatedAt); err != nil {
		return nil, mapErr(err, "update order")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr(err, "commit tx")
	}
	return o, nil
}

func decode(doc []byte) (*models.Order, error) {
	var o models.Order
	if err := json.Unmarshal(doc, &o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}
