package inventory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/inventory/models"
)

const (
	subjectStockLow     = "inventory.stock.low"
	subjectStockRestock = "inventory.stock.restock"
)

// LowStockEvent is published when a low-stock query finds entries at or below
// the threshold. Downstream consumers (alerting, email) subscribe to it; the
// query path never waits on them.
type LowStockEvent struct {
	ID        string          `json:"id"`
	Threshold int64           `json:"threshold"`
	Entries   []*models.Stock `json:"entries"`
	CreatedAt time.Time       `json:"created_at"`
}

// RestockEvent asks the engine to add quantity to one stock entry.
type RestockEvent struct {
	ID          string `json:"id"`
	WarehouseID uint64 `json:"warehouse_id"`
	ProductID   uint64 `json:"product_id"`
	Quantity    int64  `json:"quantity"`
}

type RestockHandler func(ctx context.Context, event RestockEvent) error

// EventManager publishes and consumes inventory events over NATS. Publishing
// goes through a circuit breaker so a broker outage cannot slow down or fail
// the read paths that trigger notifications.
type EventManager struct {
	natsConn *nats.Conn
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "nats-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &EventManager{
		natsConn: natsConn,
		breaker:  breaker,
		logger:   logger,
	}
}

// PublishLowStock emits a low-stock alert. Failures are logged and swallowed;
// the caller's read path must not be affected.
func (em *EventManager) PublishLowStock(threshold int64, entries []*models.Stock) {
	event := LowStockEvent{
		ID:        uuid.NewString(),
		Threshold: threshold,
		Entries:   entries,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		em.logger.Error("failed to marshal low stock event", zap.Error(err))
		return
	}

	if _, err = em.breaker.Execute(func() (any, error) {
		return nil, em.natsConn.Publish(subjectStockLow, data)
	}); err != nil {
		em.logger.Error("failed to publish low stock event",
			zap.String("event_id", event.ID),
			zap.Int64("threshold", threshold),
			zap.Error(err))
		return
	}

	em.logger.Info("published low stock event",
		zap.String("event_id", event.ID),
		zap.Int64("threshold", threshold),
		zap.Int("entries", len(entries)))
}

// SubscribeRestock dispatches restock events to handler via the worker pool.
func (em *EventManager) SubscribeRestock(wp *WorkerPool, handler RestockHandler) error {
	_, err := em.natsConn.Subscribe(subjectStockRestock, func(msg *nats.Msg) {
		var event RestockEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("failed to unmarshal restock event", zap.Error(err))
			return
		}

		wp.Submit(func() {
			if err := handler(context.Background(), event); err != nil {
				em.logger.Error("failed to process restock event",
					zap.String("event_id", event.ID),
					zap.Uint64("warehouse_id", event.WarehouseID),
					zap.Uint64("product_id", event.ProductID),
					zap.Error(err))
			}
		})
	})

	return err
}
