package models

import "errors"

// Warehouse 代表一個倉庫
type Warehouse struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	ManagerID *string `json:"manager_id,omitempty"`
}

func NewWarehouse() *Warehouse {
	return new(Warehouse)
}

func (w *Warehouse) Validate() error {
	if w.Name == "" {
		return errors.New("warehouse name is required")
	}
	if w.Location == "" {
		return errors.New("warehouse location is required")
	}
	return nil
}
