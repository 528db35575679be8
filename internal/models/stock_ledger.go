package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxReceipt  TransactionType = "RECEIPT"
	TxIssue    TransactionType = "ISSUE"
	TxReversal TransactionType = "REVERSAL"
)

// Valid reports whether t is one of the known transaction kinds.
func (t TransactionType) Valid() bool {
	switch t {
	case TxReceipt, TxIssue, TxReversal:
		return true
	}
	return false
}

// LedgerEntry is an append-only signed quantity movement.
// ReversesID links a REVERSAL to the entry it reverses; the unique index
// allows at most one reversal per entry.
type LedgerEntry struct {
	LedgerID        uint            `gorm:"column:ledger_id;primaryKey;autoIncrement" json:"ledger_id"`
	StockID         string          `gorm:"size:36;not null;index" json:"stock_id"`
	TransactionType TransactionType `gorm:"size:20;not null;index" json:"transaction_type"`
	QuantityChange  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_change"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`
	Reference       string          `gorm:"size:500" json:"reference"`
	OptionalReason  *string         `gorm:"size:500" json:"optional_reason"`
	CreatedBy       string          `gorm:"size:100" json:"created_by"`
	ReversesID      *uint           `gorm:"uniqueIndex" json:"reverses_id"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (LedgerEntry) TableName() string { return "stock_ledger" }
