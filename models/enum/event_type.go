package enum

type EventType string

const (
	EventTypeStockLow     EventType = "stock.low"
	EventTypeStockRestock EventType = "stock.restock"
)
