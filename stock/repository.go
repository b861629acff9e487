package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/inventory/cache"
	"goflare.io/inventory/driver"
	"goflare.io/inventory/models"
)

// ErrInsufficientStock is returned when a conditional decrement would take a
// stock row below zero. Under the coordinator this should never fire; it is
// the database-level backstop for the quantity >= 0 invariant.
var ErrInsufficientStock = errors.New("insufficient stock")

var _ Repository = (*repository)(nil)

type Repository interface {
	CreateStock(ctx context.Context, tx pgx.Tx, st *models.Stock) (*models.Stock, error)
	GetStock(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (*models.Stock, error)
	GetStockForUpdate(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (*models.Stock, error)
	ReduceStock(ctx context.Context, tx pgx.Tx, params []ReduceStockParams) error
	AddStock(ctx context.Context, tx pgx.Tx, params AddStockParams) error
	ListStocks(ctx context.Context, tx pgx.Tx, warehouseID uint64, limit, offset uint64) ([]*models.Stock, error)
	ListLowStock(ctx context.Context, tx pgx.Tx, threshold int64) ([]*models.Stock, error)
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

const stockColumns = `id, warehouse_id, product_id, quantity, updated_at`

func (r *repository) CreateStock(ctx context.Context, tx pgx.Tx, st *models.Stock) (*models.Stock, error) {
	const query = `
		INSERT INTO stocks (warehouse_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING ` + stockColumns

	row := driver.WithTx(r.conn, tx).QueryRow(ctx, query, st.WarehouseID, st.ProductID, st.Quantity)
	created, err := scanStock(row)
	if err != nil {
		r.logger.Error("failed to create stock",
			zap.Uint64("warehouse_id", st.WarehouseID),
			zap.Uint64("product_id", st.ProductID),
			zap.Error(err))
		return nil, err
	}

	r.invalidateStockCache(ctx, created.WarehouseID, created.ProductID)
	return created, nil
}

func (r *repository) GetStock(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (*models.Stock, error) {
	cacheKey := stockCacheKey(warehouseID, productID)

	// Cached reads are only safe outside a transaction; inside the lock scope
	// the engine must see the authoritative row.
	if tx == nil {
		var st models.Stock
		found, err := r.cache.Get(ctx, cacheKey, &st)
		if err != nil {
			r.logger.Warn("failed to get stock from cache", zap.String("key", cacheKey), zap.Error(err))
		}
		if found {
			return &st, nil
		}
	}

	const query = `
		SELECT ` + stockColumns + `
		FROM stocks
		WHERE warehouse_id = $1 AND product_id = $2`

	st, err := scanStock(driver.WithTx(r.conn, tx).QueryRow(ctx, query, warehouseID, productID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get stock",
				zap.Uint64("warehouse_id", warehouseID),
				zap.Uint64("product_id", productID),
				zap.Error(err))
		}
		return nil, err
	}

	if tx == nil {
		if err = r.cache.Set(ctx, cacheKey, st); err != nil {
			r.logger.Warn("failed to cache stock", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return st, nil
}

// GetStockForUpdate reads the row with a row-level lock so the surrounding
// transaction holds it until commit.
func (r *repository) GetStockForUpdate(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (*models.Stock, error) {
	const query = `
		SELECT ` + stockColumns + `
		FROM stocks
		WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`

	st, err := scanStock(driver.WithTx(r.conn, tx).QueryRow(ctx, query, warehouseID, productID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get stock for update",
				zap.Uint64("warehouse_id", warehouseID),
				zap.Uint64("product_id", productID),
				zap.Error(err))
		}
		return nil, err
	}
	return st, nil
}

// ReduceStock decrements each row with a conditional update: the quantity
// check and the subtraction happen in one statement, so no interleaving can
// take a row negative.
func (r *repository) ReduceStock(ctx context.Context, tx pgx.Tx, params []ReduceStockParams) error {
	const query = `
		UPDATE stocks
		SET quantity = quantity - $3, updated_at = now()
		WHERE warehouse_id = $1 AND product_id = $2 AND quantity >= $3`

	for _, param := range params {
		tag, err := driver.WithTx(r.conn, tx).Exec(ctx, query, param.WarehouseID, param.ProductID, param.Quantity)
		if err != nil {
			r.logger.Error("failed to reduce stock",
				zap.Uint64("warehouse_id", param.WarehouseID),
				zap.Uint64("product_id", param.ProductID),
				zap.Error(err))
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w for product %d in warehouse %d",
				ErrInsufficientStock, param.ProductID, param.WarehouseID)
		}
		r.invalidateStockCache(ctx, param.WarehouseID, param.ProductID)
	}

	return nil
}

// AddStock increments an existing row. Missing rows are reported as
// pgx.ErrNoRows; creating entries is CreateStock's job.
func (r *repository) AddStock(ctx context.Context, tx pgx.Tx, params AddStockParams) error {
	const query = `
		UPDATE stocks
		SET quantity = quantity + $3, updated_at = now()
		WHERE warehouse_id = $1 AND product_id = $2`

	tag, err := driver.WithTx(r.conn, tx).Exec(ctx, query, params.WarehouseID, params.ProductID, params.Quantity)
	if err != nil {
		r.logger.Error("failed to add stock",
			zap.Uint64("warehouse_id", params.WarehouseID),
			zap.Uint64("product_id", params.ProductID),
			zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("stock for product %d in warehouse %d: %w",
			params.ProductID, params.WarehouseID, pgx.ErrNoRows)
	}

	r.invalidateStockCache(ctx, params.WarehouseID, params.ProductID)
	return nil
}

func (r *repository) ListStocks(ctx context.Context, tx pgx.Tx, warehouseID uint64, limit, offset uint64) ([]*models.Stock, error) {
	const query = `
		SELECT ` + stockColumns + `
		FROM stocks
		WHERE warehouse_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, warehouseID, limit, offset)
	if err != nil {
		r.logger.Error("failed to list stocks", zap.Uint64("warehouse_id", warehouseID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectStocks(rows)
}

func (r *repository) ListLowStock(ctx context.Context, tx pgx.Tx, threshold int64) ([]*models.Stock, error) {
	const query = `
		SELECT ` + stockColumns + `
		FROM stocks
		WHERE quantity <= $1
		ORDER BY id`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, threshold)
	if err != nil {
		r.logger.Error("failed to list low stock", zap.Int64("threshold", threshold), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	return collectStocks(rows)
}

func (r *repository) invalidateStockCache(ctx context.Context, warehouseID, productID uint64) {
	if err := r.cache.Delete(ctx, stockCacheKey(warehouseID, productID)); err != nil {
		r.logger.Warn("failed to invalidate stock cache",
			zap.Uint64("warehouse_id", warehouseID),
			zap.Uint64("product_id", productID),
			zap.Error(err))
	}
}

func stockCacheKey(warehouseID, productID uint64) string {
	return fmt.Sprintf("stock:%d:%d", warehouseID, productID)
}

func scanStock(row pgx.Row) (*models.Stock, error) {
	var st models.Stock
	if err := row.Scan(&st.ID, &st.WarehouseID, &st.ProductID, &st.Quantity, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func collectStocks(rows pgx.Rows) ([]*models.Stock, error) {
	stocks := make([]*models.Stock, 0)
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}
