package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
)

var _ Store = (*MemoryStore)(nil)

var errReadOnly = errors.New("write inside a read-only transaction")

// MemoryStore keeps the ledger in process. Update serializes on one mutex
// and applies fn to a copy of the state, swapping it in only on success, so
// a failed transaction leaves nothing behind.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState

	// Now stamps CreatedAt / TransactionDate when the caller left them zero.
	Now func() time.Time
}

type memState struct {
	records    []models.StockMaster
	recordIdx  map[string]int
	entries    []models.LedgerEntry
	reversals  map[uint]uint // reversed entry -> reversing entry
	thresholds map[string]decimal.Decimal
	nextSeq    uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			recordIdx:  map[string]int{},
			reversals:  map[uint]uint{},
			thresholds: map[string]decimal.Decimal{},
			nextSeq:    1,
		},
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return Conflict(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{st: &s.state, readOnly: true, now: s.Now})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error, locks ...string) error {
	if err := ctx.Err(); err != nil {
		return Conflict(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(&memTx{st: &draft, now: s.Now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return Conflict(err)
	}
	s.state = draft
	return nil
}

func (st memState) clone() memState {
	out := memState{
		records:    append([]models.StockMaster(nil), st.records...),
		recordIdx:  make(map[string]int, len(st.recordIdx)),
		entries:    append([]models.LedgerEntry(nil), st.entries...),
		reversals:  make(map[uint]uint, len(st.reversals)),
		thresholds: make(map[string]decimal.Decimal, len(st.thresholds)),
		nextSeq:    st.nextSeq,
	}
	for k, v := range st.recordIdx {
		out.recordIdx[k] = v
	}
	for k, v := range st.reversals {
		out.reversals[k] = v
	}
	for k, v := range st.thresholds {
		out.thresholds[k] = v
	}
	return out
}

type memTx struct {
	st       *memState
	readOnly bool
	now      func() time.Time
}

func (t *memTx) Records() ([]models.StockMaster, error) {
	// Insertion order is creation order unless callers backdate CreatedAt.
	out := append([]models.StockMaster(nil), t.st.records...)
	sortRecords(out)
	return out, nil
}

func (t *memTx) Record(stockID string) (models.StockMaster, error) {
	i, ok := t.st.recordIdx[stockID]
	if !ok {
		return models.StockMaster{}, RecordNotFound(stockID)
	}
	return t.st.records[i], nil
}

func (t *memTx) CreateRecord(rec *models.StockMaster) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if _, ok := t.st.recordIdx[rec.StockID]; ok {
		return Unavailable(errors.New("duplicate stock id " + rec.StockID))
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.now()
	}
	t.st.recordIdx[rec.StockID] = len(t.st.records)
	t.st.records = append(t.st.records, *rec)
	return nil
}

func (t *memTx) Entries(f EntryFilter) ([]models.LedgerEntry, error) {
	var out []models.LedgerEntry
	for _, e := range t.st.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) Entry(ledgerID uint) (models.LedgerEntry, error) {
	// ledger ids are dense and start at 1
	if ledgerID == 0 || int(ledgerID) > len(t.st.entries) {
		return models.LedgerEntry{}, EntryNotFound(ledgerID)
	}
	return t.st.entries[ledgerID-1], nil
}

func (t *memTx) AppendEntry(e *models.LedgerEntry) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if _, ok := t.st.recordIdx[e.StockID]; !ok {
		return RecordNotFound(e.StockID)
	}
	if e.ReversesID != nil {
		if _, dup := t.st.reversals[*e.ReversesID]; dup {
			return AlreadyReversed(*e.ReversesID)
		}
	}
	now := t.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.TransactionDate.IsZero() {
		e.TransactionDate = now
	}
	e.LedgerID = t.st.nextSeq
	t.st.nextSeq++
	t.st.entries = append(t.st.entries, *e)
	if e.ReversesID != nil {
		t.st.reversals[*e.ReversesID] = e.LedgerID
	}
	return nil
}

func (t *memTx) ReversalOf(ledgerID uint) (*models.LedgerEntry, error) {
	id, ok := t.st.reversals[ledgerID]
	if !ok {
		return nil, nil
	}
	e := t.st.entries[id-1]
	return &e, nil
}

func (t *memTx) ReversedIDs() (map[uint]bool, error) {
	out := make(map[uint]bool, len(t.st.reversals))
	for id := range t.st.reversals {
		out[id] = true
	}
	return out, nil
}

func (t *memTx) Thresholds() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(t.st.thresholds))
	for k, v := range t.st.thresholds {
		out[k] = v
	}
	return out, nil
}

func (t *memTx) SetThreshold(stockID string, min decimal.Decimal) error {
	if t.readOnly {
		return Unavailable(errReadOnly)
	}
	if _, ok := t.st.recordIdx[stockID]; !ok {
		return RecordNotFound(stockID)
	}
	t.st.thresholds[stockID] = min
	return nil
}
