package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"stockledger-backend/internal/models"

	"gorm.io/gorm"
)

// Entry describes one change worth keeping a trail of.
type Entry struct {
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Data        any
}

// Entity types written by the inventory service.
const (
	EntityImportBatch = "import_batch"
	EntityLedgerEntry = "ledger_entry"
	EntityThreshold   = "stock_threshold"
	EntityUser        = "user"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Write(ctx context.Context, e Entry) error {
	data := "null"
	if e.Data != nil {
		if b, err := json.Marshal(e.Data); err == nil {
			data = string(b)
		}
	}

	log := models.AuditLog{
		UserName:    e.UserName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		Data:        data,
	}
	if err := s.db.WithContext(ctx).Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

type Filter struct {
	EntityType string
	EntityID   string
	UserName   string
	Limit      int
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// List returns the newest logs first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.UserName != "" {
		q = q.Where("user_name = ?", f.UserName)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
