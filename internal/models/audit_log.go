package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionImport  AuditAction = "import"
	AuditActionReverse AuditAction = "reverse"
	AuditActionUpdate  AuditAction = "update"
	AuditActionLogin   AuditAction = "login"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Actor (username from the token, or the CLI --actor flag)
	UserName string `gorm:"size:100;index" json:"user_name"`

	// e.g. "import_batch", "stock_threshold", "ledger_entry", "user"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   string `gorm:"size:64;index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:500" json:"description"`

	// JSON payload
	Data string `gorm:"type:text" json:"data"`
}
