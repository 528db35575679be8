package models

import "time"

// StockMaster is one physical record: a batch of an item with its provenance.
// Several rows may share one logical identity. Rows are never updated.
// Entries only declares the stock_ledger foreign key; it is never loaded.
type StockMaster struct {
	StockID      string    `gorm:"column:stock_id;primaryKey;size:36" json:"stock_id"`
	Project      string    `gorm:"size:255;not null" json:"project"`
	SupplierName string    `gorm:"size:255;not null" json:"supplier_name"`
	Invoice      string    `gorm:"size:255;not null" json:"invoice"`
	PONo         string    `gorm:"column:po_no;size:255;not null" json:"po_no"`
	PartName     string    `gorm:"size:255;not null;index" json:"part_name"`
	Description  string    `gorm:"size:1000;not null" json:"description"`
	UOM          string    `gorm:"column:uom;size:50;not null" json:"uom"`
	Location     string    `gorm:"size:255;not null" json:"location"`
	Remarks      *string   `gorm:"size:1000" json:"remarks"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Entries []LedgerEntry `gorm:"foreignKey:StockID;references:StockID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (StockMaster) TableName() string { return "stock_master" }

// IdentityFields returns the raw identity attributes, as stored.
func (m StockMaster) IdentityFields() (project, partName, description, uom, location string) {
	return m.Project, m.PartName, m.Description, m.UOM, m.Location
}
