package models

// HistoryEntry is a ledger entry joined with its record's part name and
// description, plus whether a reversal of it exists. Read-only view; not a table.
type HistoryEntry struct {
	LedgerEntry
	PartName          string `json:"part_name"`
	Description       string `json:"description"`
	IsAlreadyReversed bool   `json:"is_already_reversed"`
}
