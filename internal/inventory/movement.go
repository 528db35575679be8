package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/identity"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const manualReceiptReference = "Manual Stock Addition"

// Receive appends a RECEIPT of quantity to an existing record.
func (s *Service) Receive(ctx context.Context, stockID string, quantity decimal.Decimal, actor string) (models.LedgerEntry, error) {
	if err := ledger.CheckQuantity(quantity); err != nil {
		return models.LedgerEntry{}, err
	}

	now := s.now()
	entry := models.LedgerEntry{
		StockID:         stockID,
		TransactionType: models.TxReceipt,
		QuantityChange:  quantity,
		TransactionDate: now,
		Reference:       manualReceiptReference,
		CreatedBy:       actor,
		CreatedAt:       now,
	}
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Record(stockID); err != nil {
			return err
		}
		return tx.AppendEntry(&entry)
	})
	if err != nil {
		return models.LedgerEntry{}, err
	}

	s.writeAudit(ctx, audit.Entry{
		UserName:    actor,
		EntityType:  audit.EntityLedgerEntry,
		EntityID:    fmt.Sprint(entry.LedgerID),
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Received %s on %s", quantity, stockID),
		Data:        entry,
	})
	return entry, nil
}

type IssueRequest struct {
	StockID   string          `json:"stock_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference"`
	Reason    *string         `json:"reason,omitempty"`
	Actor     string          `json:"-"`
}

// Issue removes stock. Availability is computed over the whole identity of
// the record, and the check and the append happen under the identity lock,
// so concurrent issues of one item can never overdraw it.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (models.LedgerEntry, error) {
	if err := ledger.CheckQuantity(req.Quantity); err != nil {
		return models.LedgerEntry{}, err
	}

	key, err := s.identityOf(ctx, req.StockID)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	reason := req.Reason
	if reason != nil && strings.TrimSpace(*reason) == "" {
		reason = nil
	}
	now := s.now()
	entry := models.LedgerEntry{
		StockID:         req.StockID,
		TransactionType: models.TxIssue,
		QuantityChange:  req.Quantity.Neg(),
		TransactionDate: now,
		Reference:       req.Reference,
		OptionalReason:  reason,
		CreatedBy:       req.Actor,
		CreatedAt:       now,
	}
	err = s.store.Update(ctx, func(tx ledger.Tx) error {
		available, err := availableIn(tx, key)
		if err != nil {
			return err
		}
		if available.LessThan(req.Quantity) {
			return ledger.InsufficientStock(req.StockID, req.Quantity, available)
		}
		return tx.AppendEntry(&entry)
	}, ledger.IdentityLock(key.String()))
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) {
			s.log.Warn("issue rejected",
				zap.String("stock_id", req.StockID),
				zap.String("requested", req.Quantity.String()),
				zap.String("actor", req.Actor),
				zap.Error(err))
		}
		return models.LedgerEntry{}, err
	}

	s.writeAudit(ctx, audit.Entry{
		UserName:    req.Actor,
		EntityType:  audit.EntityLedgerEntry,
		EntityID:    fmt.Sprint(entry.LedgerID),
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("Issued %s from %s (%s)", req.Quantity, req.StockID, req.Reference),
		Data:        entry,
	})
	return entry, nil
}

// Reverse appends the exact opposite of entryID. An entry can be reversed at
// most once. A reversal that removes stock is held to the same availability
// rule as an issue.
func (s *Service) Reverse(ctx context.Context, entryID uint, actor string) (models.LedgerEntry, error) {
	var key identity.Key
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		orig, err := tx.Entry(entryID)
		if err != nil {
			return err
		}
		rec, err := tx.Record(orig.StockID)
		if err != nil {
			return err
		}
		key = identity.Of(rec)
		return nil
	})
	if err != nil {
		return models.LedgerEntry{}, err
	}

	var entry models.LedgerEntry
	err = s.store.Update(ctx, func(tx ledger.Tx) error {
		orig, err := tx.Entry(entryID)
		if err != nil {
			return err
		}
		prior, err := tx.ReversalOf(entryID)
		if err != nil {
			return err
		}
		if prior != nil {
			return ledger.AlreadyReversed(entryID)
		}

		delta := orig.QuantityChange.Neg()
		if delta.IsNegative() {
			available, err := availableIn(tx, key)
			if err != nil {
				return err
			}
			if available.Add(delta).IsNegative() {
				return ledger.InsufficientStock(orig.StockID, delta.Neg(), available)
			}
		}

		now := s.now()
		reason := "Original Ref: " + orig.Reference
		id := entryID
		entry = models.LedgerEntry{
			StockID:         orig.StockID,
			TransactionType: models.TxReversal,
			QuantityChange:  delta,
			TransactionDate: now,
			Reference:       fmt.Sprintf("Reversal of Ledger ID: %d", entryID),
			OptionalReason:  &reason,
			CreatedBy:       actor,
			ReversesID:      &id,
			CreatedAt:       now,
		}
		return tx.AppendEntry(&entry)
	}, ledger.EntryLock(entryID), ledger.IdentityLock(key.String()))
	if err != nil {
		return models.LedgerEntry{}, err
	}

	s.log.Info("entry reversed",
		zap.Uint("ledger_id", entryID),
		zap.Uint("reversal_id", entry.LedgerID),
		zap.String("actor", actor))
	s.writeAudit(ctx, audit.Entry{
		UserName:    actor,
		EntityType:  audit.EntityLedgerEntry,
		EntityID:    fmt.Sprint(entryID),
		Action:      models.AuditActionReverse,
		Description: entry.Reference,
		Data:        entry,
	})
	return entry, nil
}

// SetThreshold sets the minimum quantity below which the record's identity
// counts as low stock.
func (s *Service) SetThreshold(ctx context.Context, stockID string, minQuantity decimal.Decimal, actor string) error {
	if minQuantity.IsNegative() {
		return &ledger.Error{
			Code:      ledger.CodeInvalidQuantity,
			Message:   fmt.Sprintf("minimum quantity must not be negative, got %s", minQuantity),
			StockID:   stockID,
			Requested: minQuantity,
		}
	}
	if err := ledger.CheckPrecision(minQuantity); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		return tx.SetThreshold(stockID, minQuantity)
	})
	if err != nil {
		return err
	}

	s.writeAudit(ctx, audit.Entry{
		UserName:    actor,
		EntityType:  audit.EntityThreshold,
		EntityID:    stockID,
		Action:      models.AuditActionUpdate,
		Description: fmt.Sprintf("Minimum quantity set to %s", minQuantity),
		Data:        map[string]string{"stock_id": stockID, "min_quantity": minQuantity.String()},
	})
	return nil
}

func (s *Service) identityOf(ctx context.Context, stockID string) (identity.Key, error) {
	var key identity.Key
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		rec, err := tx.Record(stockID)
		if err != nil {
			return err
		}
		key = identity.Of(rec)
		return nil
	})
	return key, err
}
