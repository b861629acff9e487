package stock

// ReduceStockParams decrements one stock row. The repository refuses the
// decrement when it would take the row below zero.
type ReduceStockParams struct {
	WarehouseID uint64
	ProductID   uint64
	Quantity    int64
}

// AddStockParams increments one stock row (restock or compensation).
type AddStockParams struct {
	WarehouseID uint64
	ProductID   uint64
	Quantity    int64
}
