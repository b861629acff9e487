package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goflare.io/inventory/models/enum"
)

func ref(id uint64) *uint64 { return &id }

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr string
	}{
		{
			name:  "valid order with items",
			order: Order{UserID: "u1", WarehouseID: ref(1), Status: enum.OrderStatusPending, Items: []OrderItem{{ProductID: 1, Quantity: 2}}},
		},
		{
			name:  "valid empty order without warehouse",
			order: Order{UserID: "u1", Status: enum.OrderStatusPending},
		},
		{
			name:    "missing user",
			order:   Order{Status: enum.OrderStatusPending},
			wantErr: "user is required",
		},
		{
			name:    "unknown status",
			order:   Order{UserID: "u1", Status: enum.OrderStatus("SHIPPED")},
			wantErr: "unknown order status",
		},
		{
			name:    "items without warehouse",
			order:   Order{UserID: "u1", Status: enum.OrderStatusPending, Items: []OrderItem{{ProductID: 1, Quantity: 1}}},
			wantErr: "warehouse is required when items are specified",
		},
		{
			name:    "fulfilled without warehouse",
			order:   Order{UserID: "u1", Status: enum.OrderStatusFulfilled},
			wantErr: "warehouse is required for fulfilled orders",
		},
		{
			name:    "zero quantity",
			order:   Order{UserID: "u1", WarehouseID: ref(1), Status: enum.OrderStatusPending, Items: []OrderItem{{ProductID: 7, Quantity: 0}}},
			wantErr: "invalid quantity for product 7: quantity must be positive",
		},
		{
			name:    "negative quantity",
			order:   Order{UserID: "u1", WarehouseID: ref(1), Status: enum.OrderStatusPending, Items: []OrderItem{{ProductID: 7, Quantity: -3}}},
			wantErr: "quantity must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOrderAllowChangeStatus(t *testing.T) {
	tests := []struct {
		from    enum.OrderStatus
		to      enum.OrderStatus
		allowed bool
	}{
		{enum.OrderStatusPending, enum.OrderStatusProcessing, true},
		{enum.OrderStatusPending, enum.OrderStatusFulfilled, true},
		{enum.OrderStatusPending, enum.OrderStatusCancelled, true},
		{enum.OrderStatusProcessing, enum.OrderStatusFulfilled, true},
		{enum.OrderStatusProcessing, enum.OrderStatusCancelled, true},
		{enum.OrderStatusProcessing, enum.OrderStatusPending, false},
		{enum.OrderStatusFulfilled, enum.OrderStatusCancelled, false},
		{enum.OrderStatusFulfilled, enum.OrderStatusFulfilled, false},
		{enum.OrderStatusCancelled, enum.OrderStatusPending, false},
		{enum.OrderStatusCancelled, enum.OrderStatusFulfilled, false},
	}

	for _, tt := range tests {
		order := Order{Status: tt.from}
		assert.Equal(t, tt.allowed, order.AllowChangeStatus(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderCanCancel(t *testing.T) {
	assert.True(t, (&Order{Status: enum.OrderStatusPending}).CanCancel())
	assert.True(t, (&Order{Status: enum.OrderStatusProcessing}).CanCancel())
	assert.False(t, (&Order{Status: enum.OrderStatusFulfilled}).CanCancel())
	assert.False(t, (&Order{Status: enum.OrderStatusCancelled}).CanCancel())
}
