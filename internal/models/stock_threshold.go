package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockThreshold is the minimum quantity configured for one physical record.
type StockThreshold struct {
	StockID     string          `gorm:"column:stock_id;primaryKey;size:36" json:"stock_id"`
	MinQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"min_quantity"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (StockThreshold) TableName() string { return "stock_threshold" }
