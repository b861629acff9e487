package event

import (
	"context"
	"time"

	"go.uber.org/zap"

	"goflare.io/inventory/driver"
	"goflare.io/inventory/models"
)

var _ Repository = (*repository)(nil)

// Repository records received message events so redelivered messages are not
// applied twice.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	MarkAsProcessed(ctx context.Context, id string) error
}

type repository struct {
	conn   driver.PostgresPool
	logger *zap.Logger
}

func NewRepository(conn driver.PostgresPool, logger *zap.Logger) Repository {
	return &repository{
		conn:   conn,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	const query = `
		INSERT INTO events (id, type, processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now()
	_, err := r.conn.Exec(ctx, query, event.ID, event.Type, event.Processed, now, now)
	if err != nil {
		r.logger.Error("failed to create event", zap.String("event_id", event.ID), zap.Error(err))
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	const query = `
		SELECT id, type, processed, created_at, updated_at
		FROM events
		WHERE id = $1`

	var event models.Event
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&event.ID, &event.Type, &event.Processed, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) MarkAsProcessed(ctx context.Context, id string) error {
	const query = `
		UPDATE events
		SET processed = true, updated_at = $2
		WHERE id = $1`

	_, err := r.conn.Exec(ctx, query, id, time.Now())
	if err != nil {
		r.logger.Error("failed to mark event as processed", zap.String("event_id", id), zap.Error(err))
	}
	return err
}
