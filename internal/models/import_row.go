package models

import "github.com/shopspring/decimal"

// ImportRow is one externally sourced stock line, already parsed from a
// spreadsheet or submitted by hand.
type ImportRow struct {
	Project      string          `json:"project"`
	SupplierName string          `json:"supplier_name"`
	Invoice      string          `json:"invoice"`
	PONo         string          `json:"po_no"`
	PartName     string          `json:"part_name"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UOM          string          `json:"uom"`
	Location     string          `json:"location"`
	Remarks      *string         `json:"remarks,omitempty"`
	RecDate      *string         `json:"rec_date,omitempty"` // YYYY-MM-DD
}

func (r ImportRow) IdentityFields() (project, partName, description, uom, location string) {
	return r.Project, r.PartName, r.Description, r.UOM, r.Location
}
