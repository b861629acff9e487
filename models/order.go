package models

import (
	"errors"
	"fmt"
	"time"

	"goflare.io/inventory/models/enum"
)

// Order 代表訂單
type Order struct {
	ID          uint64           `json:"id"`
	UserID      string           `json:"user_id"`
	WarehouseID *uint64          `json:"warehouse_id,omitempty"`
	Status      enum.OrderStatus `json:"status"`
	Items       []OrderItem      `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
}

// OrderItem 代表訂單中的單個商品項目
type OrderItem struct {
	ID                uint64 `json:"id"`
	OrderID           uint64 `json:"order_id"`
	ProductID         uint64 `json:"product_id"`
	Quantity          int64  `json:"quantity"`
	FulfilledQuantity int64  `json:"fulfilled_quantity"`
}

func NewOrder() *Order {
	return new(Order)
}

// Validate 檢查訂單在建立時必須滿足的結構性條件
func (o *Order) Validate() error {
	if o.UserID == "" {
		return errors.New("user is required")
	}
	if !o.Status.Valid() {
		return fmt.Errorf("unknown order status %q", o.Status)
	}
	if len(o.Items) > 0 && o.WarehouseID == nil {
		return errors.New("warehouse is required when items are specified")
	}
	if o.Status == enum.OrderStatusFulfilled && o.WarehouseID == nil {
		return errors.New("warehouse is required for fulfilled orders")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("invalid quantity for product %d: quantity must be positive", item.ProductID)
		}
	}
	return nil
}

// AllowChangeStatus 檢查狀態轉換是否有效
func (o *Order) AllowChangeStatus(next enum.OrderStatus) bool {
	allowed, ok := orderStatusTransitions[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// CanCancel 檢查訂單是否可以取消
func (o *Order) CanCancel() bool {
	return o.AllowChangeStatus(enum.OrderStatusCancelled)
}

// FULFILLED 與 CANCELLED 是終態
var orderStatusTransitions = map[enum.OrderStatus][]enum.OrderStatus{
	enum.OrderStatusPending: {
		enum.OrderStatusProcessing,
		enum.OrderStatusFulfilled,
		enum.OrderStatusCancelled,
	},
	enum.OrderStatusProcessing: {
		enum.OrderStatusFulfilled,
		enum.OrderStatusCancelled,
	},
	enum.OrderStatusFulfilled: {},
	enum.OrderStatusCancelled: {},
}
