package enum

// OrderStatus 表示訂單的狀態
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // 訂單已創建，等待處理
	OrderStatusProcessing OrderStatus = "PROCESSING" // 訂單處理中
	OrderStatusFulfilled  OrderStatus = "FULFILLED"  // 訂單已出貨完成
	OrderStatusCancelled  OrderStatus = "CANCELLED"  // 訂單取消
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}
