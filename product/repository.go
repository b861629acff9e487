package product

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
	Create(ctx context.Context, tx pgx.Tx, product *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Product, error)
	GetBySKU(ctx context.Context, tx pgx.Tx, sku string) (*models.Product, error)
	List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Product, error)
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

const productColumns = `id, name, description, sku`

func (r *repository) Create(ctx context.Context, tx pgx.Tx, product *models.Product) (*models.Product, error) {
	if err := product.Validate(); err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO products (name, description, sku)
		VALUES ($1, $2, $3)
		RETURNING ` + productColumns

	created, err := scanProduct(driver.WithTx(r.conn, tx).QueryRow(ctx, query,
		product.Name, product.Description, product.SKU))
	if err != nil {
		r.logger.Error("failed to create product", zap.String("sku", product.SKU), zap.Error(err))
		return nil, err
	}

	if err = r.cache.Set(ctx, productCacheKey(created.ID), created, 30*time.Minute); err != nil {
		r.logger.Warn("failed to cache product", zap.Uint64("product_id", created.ID), zap.Error(err))
	}

	return created, nil
}

func (r *repository) GetByID(ctx context.Context, tx pgx.Tx, id uint64) (*models.Product, error) {
	cacheKey := productCacheKey(id)
	var product models.Product

	found, err := r.cache.Get(ctx, cacheKey, &product)
	if err != nil {
		r.logger.Warn("failed to get product from cache", zap.Uint64("product_id", id), zap.Error(err))
	}
	if found {
		return &product, nil
	}

	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	created, err := scanProduct(driver.WithTx(r.conn, tx).QueryRow(ctx, query, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get product", zap.Uint64("product_id", id), zap.Error(err))
		}
		return nil, err
	}

	if err = r.cache.Set(ctx, cacheKey, created, 30*time.Minute); err != nil {
		r.logger.Warn("failed to cache product", zap.Uint64("product_id", id), zap.Error(err))
	}

	return created, nil
}

func (r *repository) GetBySKU(ctx context.Context, tx pgx.Tx, sku string) (*models.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE sku = $1`

	product, err := scanProduct(driver.WithTx(r.conn, tx).QueryRow(ctx, query, sku))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("failed to get product by SKU", zap.String("sku", sku), zap.Error(err))
		}
		return nil, err
	}
	return product, nil
}

func (r *repository) List(ctx context.Context, tx pgx.Tx, limit, offset uint64) ([]*models.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := driver.WithTx(r.conn, tx).Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("failed to list products", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func productCacheKey(id uint64) string {
	return fmt.Sprintf("product:%d", id)
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var product models.Product
	if err := row.Scan(&product.ID, &product.Name, &product.Description, &product.SKU); err != nil {
		return nil, err
	}
	return &product, nil
}
