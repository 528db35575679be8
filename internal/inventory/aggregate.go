package inventory

import (
	"context"
	"sort"
	"strings"
	"time"

	"stockledger-backend/internal/identity"
	"stockledger-backend/internal/ledger"
	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
)

// InventoryItem is one logical item: the attributes of its most recently
// created record plus figures folded over every record of the identity.
type InventoryItem struct {
	models.StockMaster
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	MinQuantity       decimal.Decimal `json:"min_quantity"`
	LastMovement      *time.Time      `json:"last_movement"`
	LowStock          bool            `json:"low_stock"`
	RecordCount       int             `json:"record_count"`
}

type InventoryPage struct {
	Items      []InventoryItem `json:"items"`
	TotalCount int64           `json:"total_count"`
}

type Stats struct {
	UniqueItems   int64           `json:"unique_items"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalIssued   decimal.Decimal `json:"total_issued"`
	LowStockCount int64           `json:"low_stock_count"`
}

// group is every physical record of one identity, oldest first.
type group struct {
	key     identity.Key
	records []models.StockMaster

	available    decimal.Decimal
	minQuantity  decimal.Decimal
	lastMovement *time.Time
}

func (g *group) earliest() models.StockMaster { return g.records[0] }
func (g *group) newest() models.StockMaster   { return g.records[len(g.records)-1] }

func (g *group) lowStock() bool {
	return g.available.LessThan(g.minQuantity)
}

// snapshot is the grouped view of the store at one point in time.
type snapshot struct {
	groups  []*group // by first creation
	byKey   map[identity.Key]*group
	byStock map[string]*group
}

func groupRecords(recs []models.StockMaster) *snapshot {
	snap := &snapshot{
		byKey:   make(map[identity.Key]*group),
		byStock: make(map[string]*group, len(recs)),
	}
	for _, rec := range recs {
		key := identity.Of(rec)
		g, ok := snap.byKey[key]
		if !ok {
			g = &group{key: key}
			snap.byKey[key] = g
			snap.groups = append(snap.groups, g)
		}
		g.records = append(g.records, rec)
		snap.byStock[rec.StockID] = g
	}
	return snap
}

// loadSnapshot groups all records and folds every ledger entry and threshold
// into its group.
func loadSnapshot(tx ledger.Tx) (*snapshot, error) {
	recs, err := tx.Records()
	if err != nil {
		return nil, err
	}
	snap := groupRecords(recs)

	entries, err := tx.Entries(ledger.EntryFilter{})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		g, ok := snap.byStock[e.StockID]
		if !ok {
			continue
		}
		g.available = g.available.Add(e.QuantityChange)
		if g.lastMovement == nil || e.TransactionDate.After(*g.lastMovement) {
			d := e.TransactionDate
			g.lastMovement = &d
		}
	}

	thresholds, err := tx.Thresholds()
	if err != nil {
		return nil, err
	}
	for stockID, min := range thresholds {
		// Several records of one identity may carry a threshold; the largest wins.
		if g, ok := snap.byStock[stockID]; ok && min.GreaterThan(g.minQuantity) {
			g.minQuantity = min
		}
	}
	return snap, nil
}

// availableIn sums the deltas of every record sharing key, as seen by tx.
func availableIn(tx ledger.Tx, key identity.Key) (decimal.Decimal, error) {
	recs, err := tx.Records()
	if err != nil {
		return decimal.Zero, err
	}
	ids := []string{}
	for _, rec := range recs {
		if identity.Of(rec) == key {
			ids = append(ids, rec.StockID)
		}
	}
	entries, err := tx.Entries(ledger.EntryFilter{StockIDs: ids})
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.QuantityChange)
	}
	return sum, nil
}

// AvailableQuantity is the sum of all deltas across every record of the
// identity. An unknown identity has zero stock.
func (s *Service) AvailableQuantity(ctx context.Context, key identity.Key) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		sum, err = availableIn(tx, key)
		return err
	})
	return sum, err
}

// StockAvailable resolves stockID to its identity and returns the identity's
// available quantity.
func (s *Service) StockAvailable(ctx context.Context, stockID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		rec, err := tx.Record(stockID)
		if err != nil {
			return err
		}
		sum, err = availableIn(tx, identity.Of(rec))
		return err
	})
	return sum, err
}

func matchesRecord(rec models.StockMaster, needle string) bool {
	for _, field := range []string{rec.PartName, rec.Project, rec.SupplierName, rec.Invoice} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// InventoryPage lists one row per identity, newest first. search is matched
// case-insensitively against part name, project, supplier and invoice of any
// record in the identity; the row then shows the newest matching record.
func (s *Service) InventoryPage(ctx context.Context, search string, page, pageSize int) (InventoryPage, error) {
	var snap *snapshot
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		snap, err = loadSnapshot(tx)
		return err
	})
	if err != nil {
		return InventoryPage{}, err
	}

	needle := strings.ToLower(strings.TrimSpace(search))
	items := make([]InventoryItem, 0, len(snap.groups))
	for _, g := range snap.groups {
		rep, ok := g.newest(), true
		if needle != "" {
			ok = false
			for i := len(g.records) - 1; i >= 0; i-- {
				if matchesRecord(g.records[i], needle) {
					rep, ok = g.records[i], true
					break
				}
			}
		}
		if !ok {
			continue
		}
		items = append(items, InventoryItem{
			StockMaster:       rep,
			AvailableQuantity: g.available,
			MinQuantity:       g.minQuantity,
			LastMovement:      g.lastMovement,
			LowStock:          g.lowStock(),
			RecordCount:       len(g.records),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].CreatedAt, items[j].CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].StockID < items[j].StockID
	})

	start, end := pageBounds(page, pageSize, len(items))
	return InventoryPage{
		Items:      items[start:end],
		TotalCount: int64(len(items)),
	}, nil
}

// LowStockCount counts identities whose available quantity is below their
// effective minimum.
func (s *Service) LowStockCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		snap, err := loadSnapshot(tx)
		if err != nil {
			return err
		}
		n = countLow(snap)
		return nil
	})
	return n, err
}

func countLow(snap *snapshot) int64 {
	var n int64
	for _, g := range snap.groups {
		if g.lowStock() {
			n++
		}
	}
	return n
}

// Stats reports dashboard figures. Received and issued totals skip entries
// that have been reversed.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		snap, err := loadSnapshot(tx)
		if err != nil {
			return err
		}
		reversed, err := tx.ReversedIDs()
		if err != nil {
			return err
		}
		entries, err := tx.Entries(ledger.EntryFilter{
			Kinds: []models.TransactionType{models.TxReceipt, models.TxIssue},
		})
		if err != nil {
			return err
		}

		st.UniqueItems = int64(len(snap.groups))
		st.LowStockCount = countLow(snap)
		st.TotalReceived = decimal.Zero
		st.TotalIssued = decimal.Zero
		for _, e := range entries {
			if reversed[e.LedgerID] {
				continue
			}
			switch e.TransactionType {
			case models.TxReceipt:
				st.TotalReceived = st.TotalReceived.Add(e.QuantityChange)
			case models.TxIssue:
				st.TotalIssued = st.TotalIssued.Add(e.QuantityChange.Abs())
			}
		}
		return nil
	})
	return st, err
}
