package models

import (
	"time"

	"goflare.io/inventory/models/enum"
)

// Event 記錄已接收的訊息事件，用於避免重複處理
type Event struct {
	ID        string         `json:"id"`
	Type      enum.EventType `json:"type"`
	Processed bool           `json:"processed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
