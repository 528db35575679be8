// Package spreadsheet turns uploaded xlsx / csv sheets into import rows and
// renders ledger history as xlsx.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stockledger-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")
	ErrMissingColumn     = errors.New("missing required column")
	ErrEmptySheet        = errors.New("sheet has no rows")
)

// TemplateHeaders is the column layout of the import template.
var TemplateHeaders = []string{
	"S.No", "Rec Date", "Project", "Supplier Name", "Invoice", "PO No",
	"Part Name", "Description", "Qty", "UOM", "Location", "Remarks",
}

// Sheet is the parse result. Skipped holds 1-based sheet line numbers of data
// rows dropped for a missing part name or a non-positive quantity.
type Sheet struct {
	Rows    []models.ImportRow
	Skipped []int
}

type column int

const (
	colRecDate column = iota
	colProject
	colSupplier
	colInvoice
	colPONo
	colPartName
	colDescription
	colQty
	colUOM
	colLocation
	colRemarks
)

// headerAliases maps normalized header text to its column.
var headerAliases = map[string]column{
	"rec date":      colRecDate,
	"rec_date":      colRecDate,
	"date":          colRecDate,
	"project":       colProject,
	"supplier name": colSupplier,
	"supplier_name": colSupplier,
	"supplier":      colSupplier,
	"invoice":       colInvoice,
	"invoice no":    colInvoice,
	"po no":         colPONo,
	"po_no":         colPONo,
	"po number":     colPONo,
	"part name":     colPartName,
	"part_name":     colPartName,
	"description":   colDescription,
	"qty":           colQty,
	"quantity":      colQty,
	"uom":           colUOM,
	"location":      colLocation,
	"remarks":       colRemarks,
}

// ParseFile reads path, choosing the reader by extension.
func ParseFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, filepath.Base(path))
}

// Parse reads r as the format implied by filename's extension.
func Parse(r io.Reader, filename string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	case ".csv":
		return ParseCSV(r)
	}
	return nil, ErrUnsupportedFormat
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func ParseCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*Sheet, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	index := map[column]int{}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(h, "\ufeff")), " "))
		if col, ok := headerAliases[key]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	if _, ok := index[colPartName]; !ok {
		return nil, fmt.Errorf("%w: Part Name", ErrMissingColumn)
	}
	if _, ok := index[colQty]; !ok {
		return nil, fmt.Errorf("%w: Qty", ErrMissingColumn)
	}

	cell := func(row []string, col column) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	sheet := &Sheet{Rows: make([]models.ImportRow, 0, len(rows)-1)}
	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		qty, err := parseQuantity(cell(row, colQty))
		if err != nil || !qty.IsPositive() || cell(row, colPartName) == "" {
			sheet.Skipped = append(sheet.Skipped, line)
			continue
		}

		ir := models.ImportRow{
			Project:      cell(row, colProject),
			SupplierName: cell(row, colSupplier),
			Invoice:      cell(row, colInvoice),
			PONo:         cell(row, colPONo),
			PartName:     cell(row, colPartName),
			Description:  cell(row, colDescription),
			Quantity:     qty,
			UOM:          cell(row, colUOM),
			Location:     cell(row, colLocation),
		}
		if v := cell(row, colRemarks); v != "" {
			ir.Remarks = &v
		}
		if v := cell(row, colRecDate); v != "" {
			d := normalizeDate(v)
			ir.RecDate = &d
		}
		sheet.Rows = append(sheet.Rows, ir)
	}
	return sheet, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseQuantity(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, errors.New("empty quantity")
	}
	return decimal.NewFromString(s)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// normalizeDate rewrites a sheet date as YYYY-MM-DD. Excel serial numbers are
// accepted. Unrecognized text is returned unchanged.
func normalizeDate(s string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
