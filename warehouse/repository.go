package warehouse

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
)

var _ Repository = (*repository)(nil)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, warehouse *models.Warehouse) (*models.Warehouse, error)
	GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Warehouse, error)
	GetByName(ctx context.Context, tx pgx.Tx, name string) (*models.Warehouse, error)
	List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Warehouse, error)
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

const warehouseColumns = `id, name, location, manager_id`

func (r *repository) Create(ctx context.Context, tx pgx.Tx, warehouse *models.Warehouse) (*models.Warehouse, error) {
	if err := warehouse.Validate(); err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO warehouses (name, location, manager_id)
		VALUES ($1, $2, $3)
		RETURNING ` + warehouseColumns

	created, err := scanWarehouse(driver.WithTx(r.conn, tx).QueryRow(ctx, query,
		warehouse.Name, warehouse.Location, warehouse.ManagerID))
	if err != nil {
		r.logger.Error("failed to create warehouse", zap.String("name", warehouse.Name), zap.Error(err))
		return nil, err
	}

	if err = r.cache.Set(ctx, warehouseCacheKey(created.ID), created, 30*time.Minute); err != nil {
		r.logger.Warn("failed to cache warehouse", zap.Uint64("warehouse_id", created.ID), zap.Error(err))
	}

	return created, nil
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Warehouse, error) {
	cacheKey := warehouseCacheKey(id)
	var warehouse models.Warehouse

	found, err := r.cache.Get(ctx, cacheKey, &warehouse)
	if err != nil {
		r.logger.Warn("failed to get warehouse from cache", zap.Uint64("warehouse_id", id), zap.Error(err))
	}
	if found {
		return &warehouse, nil
	}

	const query = `
		SELECT ` + warehouseColumns + `
		FROM warehouses
		WHERE id = $1`

	created, err := scanWarehouse(driver.WithTx(r.conn, tx).QueryRow(ctx, query, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get warehouse", zap.Uint64("warehouse_id", id), zap.Error(err))
		}
		return nil, err
	}

	if err = r.cache.Set(ctx, cacheKey, created, 30*time.Minute); err != nil {
		r.logger.Warn("failed to cache warehouse", zap.Uint64("warehouse_id", id), zap.Error(err))
	}

	return created, nil
}

func (r *repository) GetByName(ctx context.Context, tx pgx.Tx, name string) (*models.Warehouse, error) {
	const query = `
		SELECT ` + warehouseColumns + `
		FROM warehouses
		WHERE name = $1`

	warehouse, err := scanWarehouse(driver.WithTx(r.conn, tx).QueryRow(ctx, query, name))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get warehouse by name", zap.String("name", name), zap.Error(err))
		}
		return nil, err
	}
	return warehouse, nil
}

func (r *repository) List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Warehouse, error) {
	const query = `
		SELECT ` + warehouseColumns + `
		FROM warehouses
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("failed to list warehouses", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	warehouses := make([]*models.Warehouse, 0)
	for rows.Next() {
		warehouse, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		warehouses = append(warehouses, warehouse)
	}
	return warehouses, rows.Err()
}

func warehouseCacheKey(id uint64) string {
	return fmt.Sprintf("warehouse:%d", id)
}

func scanWarehouse(row pgx.Row) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	if err := row.Scan(&warehouse.ID, &warehouse.Name, &warehouse.Location, &warehouse.ManagerID); err != nil {
		return nil, err
	}
	return &warehouse, nil
}
