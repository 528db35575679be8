package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger-backend/internal/audit"
	"stockledger-backend/internal/identity"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"

	"go.uber.org/zap"
)

type PreviewStatus string

const (
	StatusNew    PreviewStatus = "NEW"
	StatusMerged PreviewStatus = "MERGED"
)

// PreviewEntry is the fate of one import row had it been committed now.
type PreviewEntry struct {
	Row             models.ImportRow `json:"row"`
	Status          PreviewStatus    `json:"status"`
	ExistingStockID *string          `json:"existing_stock_id"`
	// Set on NEW rows that nearly match an existing item.
	DiffReason *string `json:"diff_reason"`
}

type CommitResult struct {
	Created int    `json:"created"`
	Merged  int    `json:"merged"`
	Entries []uint `json:"entries"`
}

// Preview classifies rows against the stored records without writing. A row
// whose identity already exists is MERGED into the earliest record of that
// identity; everything else is NEW.
func (s *Service) Preview(ctx context.Context, rows []models.ImportRow) ([]PreviewEntry, error) {
	out := make([]PreviewEntry, 0, len(rows))
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		recs, err := tx.Records()
		if err != nil {
			return err
		}
		snap := groupRecords(recs)
		for _, row := range rows {
			out = append(out, previewRow(snap, row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func previewRow(snap *snapshot, row models.ImportRow) PreviewEntry {
	key := identity.Of(row)
	if g, ok := snap.byKey[key]; ok {
		id := g.earliest().StockID
		return PreviewEntry{Row: row, Status: StatusMerged, ExistingStockID: &id}
	}
	return PreviewEntry{Row: row, Status: StatusNew, DiffReason: nearMiss(snap, key)}
}

// nearMiss explains a NEW row when an item exists that differs from it only
// in uom and/or location.
func nearMiss(snap *snapshot, key identity.Key) *string {
	for _, g := range snap.groups {
		diff := key.Diff(g.key)
		if len(diff) == 0 {
			continue
		}
		onlyPlacement := true
		for _, f := range diff {
			if f != "uom" && f != "location" {
				onlyPlacement = false
				break
			}
		}
		if onlyPlacement {
			reason := fmt.Sprintf("differs from stock %s in %s", g.earliest().StockID, strings.Join(diff, ", "))
			return &reason
		}
	}
	return nil
}

// Commit applies previews in one transaction: NEW rows create a record,
// MERGED rows reuse the given one, and every row appends a RECEIPT. If any
// row fails nothing is written.
func (s *Service) Commit(ctx context.Context, previews []PreviewEntry, actor string) (CommitResult, error) {
	var res CommitResult
	if len(previews) == 0 {
		return res, nil
	}

	now := s.now()
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		res = CommitResult{Entries: make([]uint, 0, len(previews))}
		for i, p := range previews {
			id, err := s.commitRow(tx, p, actor, now, &res)
			if err != nil {
				return fmt.Errorf("import row %d: %w", i+1, err)
			}
			res.Entries = append(res.Entries, id)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("import rejected", zap.String("actor", actor), zap.Int("rows", len(previews)), zap.Error(err))
		return CommitResult{}, err
	}

	s.log.Info("import committed",
		zap.String("actor", actor),
		zap.Int("created", res.Created),
		zap.Int("merged", res.Merged))
	s.writeAudit(ctx, audit.Entry{
		UserName:    actor,
		EntityType:  audit.EntityImportBatch,
		EntityID:    fmt.Sprintf("%d-%d", res.Entries[0], res.Entries[len(res.Entries)-1]),
		Action:      models.AuditActionImport,
		Description: fmt.Sprintf("Imported %d rows (%d new, %d merged)", len(previews), res.Created, res.Merged),
		Data:        res,
	})
	return res, nil
}

func (s *Service) commitRow(tx ledger.Tx, p PreviewEntry, actor string, now time.Time, res *CommitResult) (uint, error) {
	row := p.Row
	if err := ledger.CheckQuantity(row.Quantity); err != nil {
		return 0, err
	}

	var stockID string
	switch p.Status {
	case StatusMerged:
		if p.ExistingStockID == nil || *p.ExistingStockID == "" {
			return 0, ledger.RecordNotFound("")
		}
		if _, err := tx.Record(*p.ExistingStockID); err != nil {
			return 0, err
		}
		stockID = *p.ExistingStockID
		res.Merged++
	case StatusNew:
		rec := models.StockMaster{
			StockID:      s.newID(),
			Project:      row.Project,
			SupplierName: row.SupplierName,
			Invoice:      row.Invoice,
			PONo:         row.PONo,
			PartName:     row.PartName,
			Description:  row.Description,
			UOM:          row.UOM,
			Location:     row.Location,
			Remarks:      row.Remarks,
			CreatedAt:    now,
		}
		if err := tx.CreateRecord(&rec); err != nil {
			return 0, err
		}
		stockID = rec.StockID
		res.Created++
	default:
		return 0, fmt.Errorf("unknown preview status %q", p.Status)
	}

	entry := models.LedgerEntry{
		StockID:         stockID,
		TransactionType: models.TxReceipt,
		QuantityChange:  row.Quantity,
		TransactionDate: receivedOn(row, now),
		Reference:       fmt.Sprintf("Excel Import: %s | Supplier: %s", row.Invoice, row.SupplierName),
		CreatedBy:       actor,
		CreatedAt:       now,
	}
	if err := tx.AppendEntry(&entry); err != nil {
		return 0, err
	}
	return entry.LedgerID, nil
}

// receivedOn is the row's rec_date when it parses, else now.
func receivedOn(row models.ImportRow, now time.Time) time.Time {
	if row.RecDate == nil {
		return now
	}
	raw := strings.TrimSpace(*row.RecDate)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return now
}

// AddStockEntry records a single hand-entered row exactly as an import of
// one row would.
func (s *Service) AddStockEntry(ctx context.Context, row models.ImportRow, actor string) (CommitResult, error) {
	if err := ledger.CheckQuantity(row.Quantity); err != nil {
		return CommitResult{}, err
	}
	previews, err := s.Preview(ctx, []models.ImportRow{row})
	if err != nil {
		return CommitResult{}, err
	}
	return s.Commit(ctx, previews, actor)
}
