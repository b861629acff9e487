package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/inventory/cache"
	"goflare.io/inventory/driver"
	"goflare.io/inventory/models"
	"goflare.io/inventory/models/enum"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	CreateOrder(ctx context.Context, tx pgx.Tx, order *models.Order) (*models.Order, error)
	GetOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (*models.Order, error)
	ListOrders(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID uint64, status enum.OrderStatus) error
	DeleteOrder(ctx context.Context, tx pgx.Tx, orderID uint64) error

	AddOrderItems(ctx context.Context, tx pgx.Tx, items []*models.OrderItem) error
	ListOrderItems(ctx context.Context, tx pgx.Tx, orderID uint64) ([]models.OrderItem, error)
	MarkItemsFulfilled(ctx context.Context, tx pgx.Tx, orderID uint64) error
}

type repository struct {
	conn   driver.PostgresPool
	cache  *cache.Cache
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, cache *cache.Cache, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		cache:  cache,
		logger: logger,
	}
}

const orderColumns = `id, user_id, warehouse_id, status, created_at`

func (r *repository) CreateOrder(ctx context.Context, tx pgx.Tx, order *models.Order) (*models.Order, error) {
	const query = `
		INSERT INTO orders (user_id, warehouse_id, status)
		VALUES ($1, $2, $3)
		RETURNING ` + orderColumns

	created, err := scanOrder(driver.WithTx(r.conn, tx).QueryRow(ctx, query,
		order.UserID, order.WarehouseID, order.Status))
	if err != nil {
		r.logger.Error("failed to create order", zap.String("user_id", order.UserID), zap.Error(err))
		return nil, err
	}

	// Item rows are inserted separately; carry them over for the caller.
	created.Items = order.Items

	// Inside a transaction the row is not committed yet; nothing to cache.
	if tx == nil {
		if err = r.cache.Set(ctx, orderCacheKey(created.ID), created, 30*time.Minute); err != nil {
			r.logger.Warn("failed to cache order", zap.Uint64("order_id", created.ID), zap.Error(err))
		}
	}

	return created, nil
}

func (r *repository) GetOrder(ctx context.Context, tx pgx.Tx, orderID uint64) (*models.Order, error) {
	cacheKey := orderCacheKey(orderID)

	if tx == nil {
		var order models.Order
		found, err := r.cache.Get(ctx, cacheKey, &order)
		if err != nil {
			r.logger.Warn("failed to get order from cache", zap.Uint64("order_id", orderID), zap.Error(err))
		}
		if found {
			return &order, nil
		}
	}

	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`

	order, err := scanOrder(driver.WithTx(r.conn, tx).QueryRow(ctx, query, orderID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get order", zap.Uint64("order_id", orderID), zap.Error(err))
		}
		return nil, err
	}

	if tx == nil {
		if err = r.cache.Set(ctx, cacheKey, order, 30*time.Minute); err != nil {
			r.logger.Warn("failed to cache order", zap.Uint64("order_id", orderID), zap.Error(err))
		}
	}

	return order, nil
}

func (r *repository) ListOrders(ctx context.Context, tx pgx.Tx, userID string, limit, offset uint64) ([]*models.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("failed to list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *repository) UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID uint64, status enum.OrderStatus) error {
	const query = `
		UPDATE orders
		SET status = $2
		WHERE id = $1`

	tag, err := driver.WithTx(r.conn, tx).Exec(ctx, query, orderID, status)
	if err != nil {
		r.logger.Error("failed to update order status",
			zap.Uint64("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, pgx.ErrNoRows)
	}

	r.invalidateOrderCache(ctx, orderID)
	return nil
}

// DeleteOrder removes the order and its items (the order owns them).
func (r *repository) DeleteOrder(ctx context.Context, tx pgx.Tx, orderID uint64) error {
	q := driver.WithTx(r.conn, tx)

	if _, err := q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		r.logger.Error("failed to delete order items", zap.Uint64("order_id", orderID), zap.Error(err))
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		r.logger.Error("failed to delete order", zap.Uint64("order_id", orderID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", orderID, pgx.ErrNoRows)
	}

	r.invalidateOrderCache(ctx, orderID)
	return nil
}

func (r *repository) AddOrderItems(ctx context.Context, tx pgx.Tx, items []*models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	const query = `
		INSERT INTO order_items (order_id, product_id, quantity, fulfilled_quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.OrderID, item.ProductID, item.Quantity, item.FulfilledQuantity)
	}

	results := driver.WithTx(r.conn, tx).SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			r.logger.Error("failed to close batch", zap.Error(err))
		}
	}()

	for _, item := range items {
		if err := results.QueryRow().Scan(&item.ID); err != nil {
			r.logger.Error("failed to add order item",
				zap.Uint64("order_id", item.OrderID),
				zap.Uint64("product_id", item.ProductID),
				zap.Error(err))
			return err
		}
	}

	r.invalidateOrderItemsCache(ctx, items[0].OrderID)
	return nil
}

func (r *repository) ListOrderItems(ctx context.Context, tx pgx.Tx, orderID uint64) ([]models.OrderItem, error) {
	cacheKey := orderItemsCacheKey(orderID)

	if tx == nil {
		var items []models.OrderItem
		found, err := r.cache.Get(ctx, cacheKey, &items)
		if err != nil {
			r.logger.Warn("failed to get order items from cache", zap.Uint64("order_id", orderID), zap.Error(err))
		}
		if found {
			return items, nil
		}
	}

	const query = `
		SELECT id, order_id, product_id, quantity, fulfilled_quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error("failed to list order items", zap.Uint64("order_id", orderID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		if err = rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.FulfilledQuantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if tx == nil {
		if err = r.cache.Set(ctx, cacheKey, items, 30*time.Minute); err != nil {
			r.logger.Warn("failed to cache order items", zap.Uint64("order_id", orderID), zap.Error(err))
		}
	}

	return items, nil
}

// MarkItemsFulfilled sets fulfilled_quantity = quantity on every item of the
// order, used by the fulfillment transition after stock has been decremented.
func (r *repository) MarkItemsFulfilled(ctx context.Context, tx pgx.Tx, orderID uint64) error {
	const query = `
		UPDATE order_items
		SET fulfilled_quantity = quantity
		WHERE order_id = $1`

	if _, err := driver.WithTx(r.conn, tx).Exec(ctx, query, orderID); err != nil {
		r.logger.Error("failed to mark order items fulfilled", zap.Uint64("order_id", orderID), zap.Error(err))
		return err
	}

	r.invalidateOrderItemsCache(ctx, orderID)
	return nil
}

func (r *repository) invalidateOrderCache(ctx context.Context, orderID uint64) {
	if err := r.cache.Delete(ctx, orderCacheKey(orderID)); err != nil {
		r.logger.Warn("failed to invalidate order cache", zap.Uint64("order_id", orderID), zap.Error(err))
	}
}

func (r *repository) invalidateOrderItemsCache(ctx context.Context, orderID uint64) {
	if err := r.cache.Delete(ctx, orderItemsCacheKey(orderID)); err != nil {
		r.logger.Warn("failed to invalidate order items cache", zap.Uint64("order_id", orderID), zap.Error(err))
	}
}

func orderCacheKey(orderID uint64) string {
	return fmt.Sprintf("order:%d", orderID)
}

func orderItemsCacheKey(orderID uint64) string {
	return fmt.Sprintf("order_items:%d", orderID)
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	if err := row.Scan(&order.ID, &order.UserID, &order.WarehouseID, &order.Status, &order.CreatedAt); err != nil {
		return nil, err
	}
	return &order, nil
}
