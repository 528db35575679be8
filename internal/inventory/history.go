package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"
)

// ErrInvalidFilter is returned for export filters that cannot be applied.
var ErrInvalidFilter = errors.New("invalid filter")

type HistoryPage struct {
	Items      []models.HistoryEntry `json:"items"`
	TotalCount int64                 `json:"total_count"`
}

// ExportFilter selects entries by calendar day. Both bounds are inclusive
// and only their date part is used. Kind "" or "All" means every kind.
type ExportFilter struct {
	From *time.Time
	To   *time.Time
	Kind string
}

// HistoryPage lists ledger entries newest first. search matches reference,
// transaction type, reason, creator, part name and description.
func (s *Service) HistoryPage(ctx context.Context, search string, page, pageSize int) (HistoryPage, error) {
	var items []models.HistoryEntry
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		items, err = historyEntries(tx, ledger.EntryFilter{})
		return err
	})
	if err != nil {
		return HistoryPage{}, err
	}

	if needle := strings.ToLower(strings.TrimSpace(search)); needle != "" {
		kept := items[:0]
		for _, h := range items {
			if matchesHistory(h, needle) {
				kept = append(kept, h)
			}
		}
		items = kept
	}

	start, end := pageBounds(page, pageSize, len(items))
	return HistoryPage{
		Items:      items[start:end],
		TotalCount: int64(len(items)),
	}, nil
}

// HistoryExport returns every entry matching f, newest first.
func (s *Service) HistoryExport(ctx context.Context, f ExportFilter) ([]models.HistoryEntry, error) {
	ef, err := f.entryFilter()
	if err != nil {
		return nil, err
	}
	var items []models.HistoryEntry
	err = s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		items, err = historyEntries(tx, ef)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (f ExportFilter) entryFilter() (ledger.EntryFilter, error) {
	var ef ledger.EntryFilter
	if f.From != nil {
		from := startOfDay(*f.From)
		ef.From = &from
	}
	if f.To != nil {
		to := startOfDay(*f.To).AddDate(0, 0, 1)
		ef.To = &to
	}
	if ef.From != nil && ef.To != nil && !ef.From.Before(*ef.To) {
		return ef, fmt.Errorf("%w: date_from is after date_to", ErrInvalidFilter)
	}

	switch kind := strings.ToUpper(strings.TrimSpace(f.Kind)); kind {
	case "", "ALL":
	case "IN":
		ef.Kinds = []models.TransactionType{models.TxReceipt}
	case "OUT":
		ef.Kinds = []models.TransactionType{models.TxIssue}
	default:
		t := models.TransactionType(kind)
		if !t.Valid() {
			return ef, fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidFilter, f.Kind)
		}
		ef.Kinds = []models.TransactionType{t}
	}
	return ef, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func historyEntries(tx ledger.Tx, f ledger.EntryFilter) ([]models.HistoryEntry, error) {
	entries, err := tx.Entries(f)
	if err != nil {
		return nil, err
	}
	reversed, err := tx.ReversedIDs()
	if err != nil {
		return nil, err
	}
	recs, err := tx.Records()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.StockMaster, len(recs))
	for _, r := range recs {
		byID[r.StockID] = r
	}

	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		rec := byID[e.StockID]
		out = append(out, models.HistoryEntry{
			LedgerEntry:       e,
			PartName:          rec.PartName,
			Description:       rec.Description,
			IsAlreadyReversed: reversed[e.LedgerID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].TransactionDate, out[j].TransactionDate
		if !a.Equal(b) {
			return a.After(b)
		}
		return out[i].LedgerID > out[j].LedgerID
	})
	return out, nil
}

func matchesHistory(h models.HistoryEntry, needle string) bool {
	fields := []string{h.Reference, string(h.TransactionType), h.CreatedBy, h.PartName, h.Description}
	if h.OptionalReason != nil {
		fields = append(fields, *h.OptionalReason)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
