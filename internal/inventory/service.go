// Package inventory holds the stock engines and their HTTP handlers.
//
// All quantity questions are answered by folding ledger entries over every
// physical record that shares a logical identity (see package identity).
// Nothing is cached; every call reads the ledger afresh through the injected
// ledger.Store.
package inventory

import (
	"context"
	"time"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/ledger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auditor receives a summary of every committed change. Failures are logged
// and never fail the change itself.
type Auditor interface {
	Write(ctx context.Context, e audit.Entry) error
}

type Service struct {
	store   ledger.Store
	log     *zap.Logger
	auditor Auditor

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock replaces the wall clock used for entry and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the uuid generator used for new stock ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store ledger.Store, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) writeAudit(ctx context.Context, e audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Write(ctx, e); err != nil {
		s.log.Warn("audit log not written",
			zap.String("entity_type", e.EntityType),
			zap.String("entity_id", e.EntityID),
			zap.Error(err))
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// pageBounds returns the slice bounds of a 1-based page over n items.
func pageBounds(page, pageSize, n int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	start = (page - 1) * pageSize
	if start > n {
		start = n
	}
	end = start + pageSize
	if end > n {
		end = n
	}
	return start, end
}
