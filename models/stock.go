package models

import "time"

// Stock 代表單一倉庫中單一商品的庫存量
type Stock struct {
	ID          uint64    `json:"id"`
	WarehouseID uint64    `json:"warehouse_id"`
	ProductID   uint64    `json:"product_id"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}
