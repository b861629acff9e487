package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/inventory/driver"
	"goflare.io/inventory/event"
	"goflare.io/inventory/lock"
	"goflare.io/inventory/models"
	"goflare.io/inventory/models/enum"
	"goflare.io/inventory/order"
	"goflare.io/inventory/product"
	"goflare.io/inventory/stock"
	"goflare.io/inventory/warehouse"
)

// Service is the order-fulfillment engine. CreateOrder and FulfillOrder are
// all-or-nothing across every line item: stock sufficiency is validated and
// decremented under the coordinator's locks inside one transaction, so
// concurrent submissions against the same stock rows can never over-sell.
type Service interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Order, error)
	FulfillOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, limit, offset uint64) ([]*models.Order, error)

	Restock(ctx context.Context, warehouseID, productID uint64, quantity int64) error
	ListLowStock(ctx context.Context, threshold int64) ([]*models.Stock, error)
}

// OrderItemInput is one requested line item.
type OrderItemInput struct {
	ProductID uint64
	Quantity  int64
}

// CreateOrderParams carries a new order request. Status defaults to PENDING.
type CreateOrderParams struct {
	UserID      string
	WarehouseID *uint64
	Status      enum.OrderStatus
	Items       []OrderItemInput
}

type service struct {
	product   product.Repository
	warehouse warehouse.Repository
	stock     stock.Repository
	order     order.Repository
	event     event.Repository

	txManager    driver.TxManager
	coordinator  *lock.Coordinator
	eventManager *EventManager
	workerPool   *WorkerPool

	logger *zap.Logger
}

func NewService(
	product product.Repository, warehouse warehouse.Repository, stock stock.Repository, order order.Repository, event event.Repository,
	tm driver.TxManager, coordinator *lock.Coordinator,
	natsConn *nats.Conn,
	logger *zap.Logger) Service {
	s := &service{
		product:     product,
		warehouse:   warehouse,
		stock:       stock,
		order:       order,
		event:       event,
		txManager:   tm,
		coordinator: coordinator,
		logger:      logger,
	}
	s.workerPool = NewWorkerPool(10, logger)

	if natsConn != nil {
		s.eventManager = NewEventManager(natsConn, logger)
		if err := s.eventManager.SubscribeRestock(s.workerPool, s.handleRestockEvent); err != nil {
			logger.Error("Failed to subscribe to restock events", zap.Error(err))
		}
	}

	return s
}

// CreateOrder validates the request, then locks every touched stock row,
// re-checks sufficiency per item and creates the order, its items and the
// stock decrements in one transaction. A failure on any item aborts the whole
// call with nothing persisted.
func (s *service) CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Order, error) {
	status := params.Status
	if status == "" {
		status = enum.OrderStatusPending
	}

	newOrder := &models.Order{
		UserID:      params.UserID,
		WarehouseID: params.WarehouseID,
		Status:      status,
	}
	for _, in := range params.Items {
		newOrder.Items = append(newOrder.Items, models.OrderItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
		})
	}

	// Structural validation happens before any stock row is touched.
	if err := newOrder.Validate(); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}

	// An order without items never touches stock.
	if len(newOrder.Items) == 0 {
		var created *models.Order
		err := s.txManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
			var err error
			created, err = s.order.CreateOrder(ctx, tx, newOrder)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		return created, nil
	}

	warehouseID := *newOrder.WarehouseID
	keys := make([]string, 0, len(newOrder.Items))
	for _, item := range newOrder.Items {
		keys = append(keys, lock.StockKey(warehouseID, item.ProductID))
	}

	var created *models.Order
	err := s.coordinator.WithLock(ctx, keys, func(ctx context.Context) error {
		return s.txManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
			reduceParams, err := s.checkStock(ctx, tx, warehouseID, newOrder.Items, true)
			if err != nil {
				return err
			}

			created, err = s.order.CreateOrder(ctx, tx, newOrder)
			if err != nil {
				return fmt.Errorf("failed to create order: %w", err)
			}

			items := make([]*models.OrderItem, len(created.Items))
			for i := range created.Items {
				created.Items[i].OrderID = created.ID
				items[i] = &created.Items[i]
			}
			if err = s.order.AddOrderItems(ctx, tx, items); err != nil {
				return fmt.Errorf("failed to add order items: %w", err)
			}

			if err = s.stock.ReduceStock(ctx, tx, reduceParams); err != nil {
				return fmt.Errorf("failed to reduce stock: %w", err)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Uint64("order_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.Int("items", len(created.Items)))

	return created, nil
}

// FulfillOrder transitions an order to FULFILLED. Stock sufficiency is
// re-validated under the locks because stock may have changed since the order
// was created; the order's own key is locked too so two concurrent
// fulfillment attempts on the same order serialize.
func (s *service) FulfillOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	current, err := s.order.GetOrder(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if !current.AllowChangeStatus(enum.OrderStatusFulfilled) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, enum.OrderStatusFulfilled)
	}
	if current.WarehouseID == nil {
		return nil, validationErrorf("warehouse is required for fulfilled orders")
	}

	items, err := s.order.ListOrderItems(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	warehouseID := *current.WarehouseID
	keys := make([]string, 0, len(items)+1)
	keys = append(keys, lock.OrderKey(orderID))
	for _, item := range items {
		keys = append(keys, lock.StockKey(warehouseID, item.ProductID))
	}

	err = s.coordinator.WithLock(ctx, keys, func(ctx context.Context) error {
		return s.txManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
			// Re-read under the order lock: a concurrent attempt may have won.
			locked, err := s.order.GetOrder(ctx, tx, orderID)
			if err != nil {
				return fmt.Errorf("failed to get order: %w", err)
			}
			if !locked.AllowChangeStatus(enum.OrderStatusFulfilled) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, locked.Status, enum.OrderStatusFulfilled)
			}

			items, err = s.order.ListOrderItems(ctx, tx, orderID)
			if err != nil {
				return fmt.Errorf("failed to list order items: %w", err)
			}

			reduceParams, err := s.checkStock(ctx, tx, warehouseID, items, false)
			if err != nil {
				return err
			}

			if err = s.stock.ReduceStock(ctx, tx, reduceParams); err != nil {
				return fmt.Errorf("failed to reduce stock: %w", err)
			}
			if err = s.order.MarkItemsFulfilled(ctx, tx, orderID); err != nil {
				return fmt.Errorf("failed to mark order items fulfilled: %w", err)
			}
			if err = s.order.UpdateOrderStatus(ctx, tx, orderID, enum.OrderStatusFulfilled); err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	current.Status = enum.OrderStatusFulfilled
	for i := range items {
		items[i].FulfilledQuantity = items[i].Quantity
	}
	current.Items = items

	s.logger.Info("order fulfilled", zap.Uint64("order_id", orderID))

	return current, nil
}

// checkStock validates sufficiency for every item and returns the per-product
// decrements to apply. Requests for the same product accumulate against one
// tentative reservation, so duplicate line items cannot jointly over-draw a
// row that each passes alone. Must run inside the coordinator's lock scope.
func (s *service) checkStock(ctx context.Context, tx pgx.Tx, warehouseID uint64, items []models.OrderItem, detailed bool) ([]stock.ReduceStockParams, error) {
	remaining := make(map[uint64]int64, len(items))
	required := make(map[uint64]int64, len(items))
	productOrder := make([]uint64, 0, len(items))

	for _, item := range items {
		available, seen := remaining[item.ProductID]
		if !seen {
			st, err := s.stock.GetStock(ctx, tx, warehouseID, item.ProductID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, validationErrorf("no stock available for %s in warehouse %s",
						s.productLabel(ctx, item.ProductID), s.warehouseLabel(ctx, warehouseID))
				}
				return nil, fmt.Errorf("failed to get stock for product %d: %w", item.ProductID, err)
			}
			available = st.Quantity
			productOrder = append(productOrder, item.ProductID)
		}

		if available < item.Quantity {
			if detailed {
				return nil, validationErrorf("insufficient stock for %s: %d available, %d requested",
					s.productLabel(ctx, item.ProductID), available, item.Quantity)
			}
			return nil, validationErrorf("insufficient stock for %s", s.productLabel(ctx, item.ProductID))
		}

		remaining[item.ProductID] = available - item.Quantity
		required[item.ProductID] += item.Quantity
	}

	reduceParams := make([]stock.ReduceStockParams, 0, len(productOrder))
	for _, productID := range productOrder {
		reduceParams = append(reduceParams, stock.ReduceStockParams{
			WarehouseID: warehouseID,
			ProductID:   productID,
			Quantity:    required[productID],
		})
	}
	return reduceParams, nil
}

// GetOrder returns the order with its items.
func (s *service) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	orderModel, err := s.order.GetOrder(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.order.ListOrderItems(ctx, nil, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	orderModel.Items = items
	return orderModel, nil
}

// ListOrders lists the orders of one user.
func (s *service) ListOrders(ctx context.Context, userID string, limit, offset uint64) ([]*models.Order, error) {
	orders, err := s.order.ListOrders(ctx, nil, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Restock adds quantity to an existing stock entry under the same key lock
// the order paths use, so a restock never interleaves with a check-then-
// decrement sequence.
func (s *service) Restock(ctx context.Context, warehouseID, productID uint64, quantity int64) error {
	if quantity <= 0 {
		return validationErrorf("invalid restock quantity %d: quantity must be positive", quantity)
	}

	key := lock.StockKey(warehouseID, productID)
	return s.coordinator.WithLock(ctx, []string{key}, func(ctx context.Context) error {
		return s.txManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
			err := s.stock.AddStock(ctx, tx, stock.AddStockParams{
				WarehouseID: warehouseID,
				ProductID:   productID,
				Quantity:    quantity,
			})
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("stock for product %d in warehouse %d: %w", productID, warehouseID, ErrNotFound)
			}
			return err
		})
	})
}

// ListLowStock returns every stock entry at or below threshold. When the
// result is non-empty a low-stock alert is published off the request path;
// notification failures never affect the returned data.
func (s *service) ListLowStock(ctx context.Context, threshold int64) ([]*models.Stock, error) {
	entries, err := s.stock.ListLowStock(ctx, nil, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}

	if len(entries) > 0 && s.eventManager != nil {
		s.workerPool.Submit(func() {
			s.eventManager.PublishLowStock(threshold, entries)
		})
	}

	return entries, nil
}

func (s *service) handleRestockEvent(ctx context.Context, ev RestockEvent) error {
	if ev.ID != "" {
		existing, err := s.event.GetByID(ctx, ev.ID)
		if err == nil && existing.Processed {
			s.logger.Info("skipping already processed restock event", zap.String("event_id", ev.ID))
			return nil
		}
		if err != nil {
			if createErr := s.event.Create(ctx, &models.Event{
				ID:   ev.ID,
				Type: enum.EventTypeStockRestock,
			}); createErr != nil {
				s.logger.Warn("failed to record restock event", zap.String("event_id", ev.ID), zap.Error(createErr))
			}
		}
	}

	if err := s.Restock(ctx, ev.WarehouseID, ev.ProductID, ev.Quantity); err != nil {
		return err
	}

	if ev.ID != "" {
		if err := s.event.MarkAsProcessed(ctx, ev.ID); err != nil {
			s.logger.Warn("failed to mark restock event processed", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}

	return nil
}

// productLabel resolves a product name for error messages, falling back to
// the numeric id when the lookup fails.
func (s *service) productLabel(ctx context.Context, productID uint64) string {
	p, err := s.product.GetByID(ctx, nil, productID)
	if err != nil {
		return fmt.Sprintf("product %d", productID)
	}
	return p.Name
}

func (s *service) warehouseLabel(ctx context.Context, warehouseID uint64) string {
	w, err := s.warehouse.GetByID(ctx, nil, warehouseID)
	if err != nil {
		return fmt.Sprintf("%d", warehouseID)
	}
	return w.Name
}
