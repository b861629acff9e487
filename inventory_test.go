package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/inventory/lock"
	"goflare.io/inventory/models"
	"goflare.io/inventory/models/enum"
	"goflare.io/inventory/stock"
)

// fakeTxManager runs fn directly; the fakes below mutate in place and the
// engine only mutates after validation passed, which is what these tests
// exercise.
type fakeTxManager struct{}

func (fakeTxManager) ExecuteTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type fakeStockRepo struct {
	mu      sync.Mutex
	stocks  map[string]*models.Stock
	nextID  uint64
	getCall int
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stocks: make(map[string]*models.Stock)}
}

func stockKey(warehouseID, productID uint64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (f *fakeStockRepo) seed(warehouseID, productID uint64, quantity int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.stocks[stockKey(warehouseID, productID)] = &models.Stock{
		ID:          f.nextID,
		WarehouseID: warehouseID,
		ProductID:   productID,
		Quantity:    quantity,
		UpdatedAt:   time.Now(),
	}
}

func (f *fakeStockRepo) quantity(t *testing.T, warehouseID, productID uint64) int64 {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stocks[stockKey(warehouseID, productID)]
	require.True(t, ok, "stock entry must exist")
	return st.Quantity
}

func (f *fakeStockRepo) CreateStock(_ context.Context, _ pgx.Tx, st *models.Stock) (*models.Stock, error) {
	f.seed(st.WarehouseID, st.ProductID, st.Quantity)
	return st, nil
}

func (f *fakeStockRepo) GetStock(_ context.Context, _ pgx.Tx, warehouseID, productID uint64) (*models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCall++
	st, ok := f.stocks[stockKey(warehouseID, productID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *st
	return &cp, nil
}

func (f *fakeStockRepo) GetStockForUpdate(ctx context.Context, tx pgx.Tx, warehouseID, productID uint64) (*models.Stock, error) {
	return f.GetStock(ctx, tx, warehouseID, productID)
}

func (f *fakeStockRepo) ReduceStock(_ context.Context, _ pgx.Tx, params []stock.ReduceStockParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range params {
		st, ok := f.stocks[stockKey(p.WarehouseID, p.ProductID)]
		if !ok {
			return pgx.ErrNoRows
		}
		if st.Quantity < p.Quantity {
			return stock.ErrInsufficientStock
		}
		st.Quantity -= p.Quantity
		st.UpdatedAt = time.Now()
	}
	return nil
}

func (f *fakeStockRepo) AddStock(_ context.Context, _ pgx.Tx, params stock.AddStockParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stocks[stockKey(params.WarehouseID, params.ProductID)]
	if !ok {
		return pgx.ErrNoRows
	}
	st.Quantity += params.Quantity
	return nil
}

func (f *fakeStockRepo) ListStocks(_ context.Context, _ pgx.Tx, warehouseID uint64, _, _ uint64) ([]*models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Stock, 0)
	for _, st := range f.stocks {
		if st.WarehouseID == warehouseID {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) ListLowStock(_ context.Context, _ pgx.Tx, threshold int64) ([]*models.Stock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Stock, 0)
	for _, st := range f.stocks {
		if st.Quantity <= threshold {
			cp := *st
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	mu         sync.Mutex
	orders     map[uint64]*models.Order
	items      map[uint64][]models.OrderItem
	nextOrder  uint64
	nextItemID uint64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[uint64]*models.Order),
		items:  make(map[uint64][]models.OrderItem),
	}
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, _ pgx.Tx, order *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextOrder++
	stored := &models.Order{
		ID:          f.nextOrder,
		UserID:      order.UserID,
		WarehouseID: order.WarehouseID,
		Status:      order.Status,
		CreatedAt:   time.Now(),
	}
	f.orders[stored.ID] = stored
	cp := *stored
	cp.Items = order.Items
	return &cp, nil
}

func (f *fakeOrderRepo) GetOrder(_ context.Context, _ pgx.Tx, orderID uint64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *order
	return &cp, nil
}

func (f *fakeOrderRepo) ListOrders(_ context.Context, _ pgx.Tx, userID string, _, _ uint64) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Order, 0)
	for _, order := range f.orders {
		if order.UserID == userID {
			cp := *order
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ context.Context, _ pgx.Tx, orderID uint64, status enum.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return pgx.ErrNoRows
	}
	order.Status = status
	return nil
}

func (f *fakeOrderRepo) DeleteOrder(_ context.Context, _ pgx.Tx, orderID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[orderID]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.orders, orderID)
	delete(f.items, orderID)
	return nil
}

func (f *fakeOrderRepo) AddOrderItems(_ context.Context, _ pgx.Tx, items []*models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.nextItemID++
		item.ID = f.nextItemID
		f.items[item.OrderID] = append(f.items[item.OrderID], *item)
	}
	return nil
}

func (f *fakeOrderRepo) ListOrderItems(_ context.Context, _ pgx.Tx, orderID uint64) ([]models.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]models.OrderItem, len(f.items[orderID]))
	copy(items, f.items[orderID])
	return items, nil
}

func (f *fakeOrderRepo) MarkItemsFulfilled(_ context.Context, _ pgx.Tx, orderID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[orderID]
	for i := range items {
		items[i].FulfilledQuantity = items[i].Quantity
	}
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[uint64]*models.Product
}

func newFakeProductRepo(products ...*models.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: make(map[uint64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) Create(_ context.Context, _ pgx.Tx, p *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, _ pgx.Tx, id uint64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeProductRepo) GetBySKU(_ context.Context, _ pgx.Tx, sku string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProductRepo) List(_ context.Context, _ pgx.Tx, _, _ uint64) ([]*models.Product, error) {
	return nil, nil
}

type fakeWarehouseRepo struct {
	warehouses map[uint64]*models.Warehouse
}

func newFakeWarehouseRepo(warehouses ...*models.Warehouse) *fakeWarehouseRepo {
	f := &fakeWarehouseRepo{warehouses: make(map[uint64]*models.Warehouse)}
	for _, w := range warehouses {
		f.warehouses[w.ID] = w
	}
	return f
}

func (f *fakeWarehouseRepo) Create(_ context.Context, _ pgx.Tx, w *models.Warehouse) (*models.Warehouse, error) {
	f.warehouses[w.ID] = w
	return w, nil
}

func (f *fakeWarehouseRepo) GetByID(_ context.Context, _ pgx.Tx, id uint64) (*models.Warehouse, error) {
	w, ok := f.warehouses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (f *fakeWarehouseRepo) GetByName(_ context.Context, _ pgx.Tx, name string) (*models.Warehouse, error) {
	for _, w := range f.warehouses {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeWarehouseRepo) List(_ context.Context, _ pgx.Tx, _, _ uint64) ([]*models.Warehouse, error) {
	return nil, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*models.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*models.Event)}
}

func (f *fakeEventRepo) Create(_ context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return event, nil
}

func (f *fakeEventRepo) MarkAsProcessed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok {
		event.Processed = true
	}
	return nil
}

type testEnv struct {
	svc       Service
	stocks    *fakeStockRepo
	orders    *fakeOrderRepo
	products  *fakeProductRepo
	warehouse *fakeWarehouseRepo
	events    *fakeEventRepo
}

const (
	testWarehouseID = uint64(1)
	productWidget   = uint64(1)
	productGadget   = uint64(2)
)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		stocks: newFakeStockRepo(),
		orders: newFakeOrderRepo(),
		products: newFakeProductRepo(
			&models.Product{ID: productWidget, Name: "Widget", SKU: "WID001"},
			&models.Product{ID: productGadget, Name: "Gadget", SKU: "GAD001"},
		),
		warehouse: newFakeWarehouseRepo(
			&models.Warehouse{ID: testWarehouseID, Name: "Central", Location: "Taipei"},
		),
		events: newFakeEventRepo(),
	}

	env.svc = NewService(
		env.products, env.warehouse, env.stocks, env.orders, env.events,
		fakeTxManager{}, lock.NewCoordinator(2*time.Second, zap.NewNop()),
		nil,
		zap.NewNop())

	return env
}

func warehouseRef(id uint64) *uint64 {
	return &id
}

func TestCreateOrder_Success(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	created, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusPending, created.Status)
	assert.EqualValues(t, 40, env.stocks.quantity(t, testWarehouseID, productWidget))

	items, err := env.orders.ListOrderItems(context.Background(), nil, created.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 10, items[0].Quantity)
	assert.EqualValues(t, 0, items[0].FulfilledQuantity)
}

func TestCreateOrder_InsufficientStockIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)
	env.stocks.seed(testWarehouseID, productGadget, 0)

	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items: []OrderItemInput{
			{ProductID: productWidget, Quantity: 10},
			{ProductID: productGadget, Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "insufficient stock for Gadget")
	assert.Contains(t, err.Error(), "0 available, 5 requested")

	// Neither row was touched.
	assert.EqualValues(t, 50, env.stocks.quantity(t, testWarehouseID, productWidget))
	assert.EqualValues(t, 0, env.stocks.quantity(t, testWarehouseID, productGadget))

	orders, err := env.orders.ListOrders(context.Background(), nil, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders, "no order may be persisted on a failed create")
}

func TestCreateOrder_NoStockEntry(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "no stock available for Widget in warehouse Central")
}

func TestCreateOrder_WarehouseRequiredBeforeStockChecks(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID: "user-1",
		Items:  []OrderItemInput{{ProductID: productWidget, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "warehouse is required when items are specified")
	assert.Zero(t, env.stocks.getCall, "stock must not be read before validation passes")
}

func TestCreateOrder_FulfilledStatusRequiresWarehouse(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID: "user-1",
		Status: enum.OrderStatusFulfilled,
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "warehouse is required for fulfilled orders")
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 0}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "quantity must be positive")
	assert.EqualValues(t, 50, env.stocks.quantity(t, testWarehouseID, productWidget))
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPending, created.Status)
	assert.Nil(t, created.WarehouseID)
	assert.Empty(t, created.Items)
}

func TestCreateOrder_DuplicateItemsShareOneReservation(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 10)

	// Each line passes alone; together they over-draw the row.
	_, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items: []OrderItemInput{
			{ProductID: productWidget, Quantity: 6},
			{ProductID: productWidget, Quantity: 6},
		},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.EqualValues(t, 10, env.stocks.quantity(t, testWarehouseID, productWidget))
}

func TestCreateOrder_ConcurrentSubmissionsSerialize(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateOrder(context.Background(), CreateOrderParams{
				UserID:      fmt.Sprintf("user-%d", i),
				WarehouseID: warehouseRef(testWarehouseID),
				Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 30}},
			})
		}(i)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, IsValidationError(err), "loser must fail the sufficiency check, got %v", err)
			failed++
		}
	}

	assert.Equal(t, 1, succeeded, "exactly one order wins the stock")
	assert.Equal(t, 1, failed)
	assert.EqualValues(t, 20, env.stocks.quantity(t, testWarehouseID, productWidget))
}

func TestFulfillOrder_Success(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	created, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 10}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 40, env.stocks.quantity(t, testWarehouseID, productWidget))

	fulfilled, err := env.svc.FulfillOrder(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusFulfilled, fulfilled.Status)
	require.Len(t, fulfilled.Items, 1)
	assert.EqualValues(t, 10, fulfilled.Items[0].FulfilledQuantity)
	assert.EqualValues(t, 30, env.stocks.quantity(t, testWarehouseID, productWidget))

	stored, err := env.orders.GetOrder(context.Background(), nil, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusFulfilled, stored.Status)
}

func TestFulfillOrder_RecheckCatchesDrainedStock(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 50)

	first, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 30}},
	})
	require.NoError(t, err)

	// Another order drains the remainder before the first is fulfilled.
	_, err = env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-2",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 20}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, env.stocks.quantity(t, testWarehouseID, productWidget))

	_, err = env.svc.FulfillOrder(context.Background(), first.ID)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "insufficient stock for Widget")

	stored, err := env.orders.GetOrder(context.Background(), nil, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPending, stored.Status, "failed fulfillment must leave the order pending")

	items, err := env.orders.ListOrderItems(context.Background(), nil, first.ID)
	require.NoError(t, err)
	for _, item := range items {
		assert.EqualValues(t, 0, item.FulfilledQuantity)
	}
	assert.EqualValues(t, 0, env.stocks.quantity(t, testWarehouseID, productWidget))
}

func TestFulfillOrder_AlreadyFulfilled(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 100)

	created, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 10}},
	})
	require.NoError(t, err)

	_, err = env.svc.FulfillOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.EqualValues(t, 80, env.stocks.quantity(t, testWarehouseID, productWidget))

	// Repeated attempts keep failing and never decrement again.
	for i := 0; i < 3; i++ {
		_, err = env.svc.FulfillOrder(context.Background(), created.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.EqualValues(t, 80, env.stocks.quantity(t, testWarehouseID, productWidget))
	}
}

func TestFulfillOrder_ConcurrentAttemptsOnOneOrder(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 100)

	created, err := env.svc.CreateOrder(context.Background(), CreateOrderParams{
		UserID:      "user-1",
		WarehouseID: warehouseRef(testWarehouseID),
		Items:       []OrderItemInput{{ProductID: productWidget, Quantity: 30}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 70, env.stocks.quantity(t, testWarehouseID, productWidget))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.FulfillOrder(context.Background(), created.ID)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, succeeded, "only one fulfillment attempt may win")
	assert.EqualValues(t, 40, env.stocks.quantity(t, testWarehouseID, productWidget))
}

func TestFulfillOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.FulfillOrder(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRestock(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 5)

	require.NoError(t, env.svc.Restock(context.Background(), testWarehouseID, productWidget, 20))
	assert.EqualValues(t, 25, env.stocks.quantity(t, testWarehouseID, productWidget))

	err := env.svc.Restock(context.Background(), testWarehouseID, productGadget, 5)
	require.ErrorIs(t, err, ErrNotFound)

	err = env.svc.Restock(context.Background(), testWarehouseID, productWidget, 0)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestListLowStock(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 3)
	env.stocks.seed(testWarehouseID, productGadget, 50)

	entries, err := env.svc.ListLowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, productWidget, entries[0].ProductID)

	entries, err = env.svc.ListLowStock(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleRestockEvent_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.stocks.seed(testWarehouseID, productWidget, 10)

	svc := env.svc.(*service)
	ev := RestockEvent{ID: "evt-1", WarehouseID: testWarehouseID, ProductID: productWidget, Quantity: 5}

	require.NoError(t, svc.handleRestockEvent(context.Background(), ev))
	assert.EqualValues(t, 15, env.stocks.quantity(t, testWarehouseID, productWidget))

	// Redelivery of the same event must not apply twice.
	require.NoError(t, svc.handleRestockEvent(context.Background(), ev))
	assert.EqualValues(t, 15, env.stocks.quantity(t, testWarehouseID, productWidget))
}
