package spreadsheet

import (
	"fmt"
	"io"

	"stockledger-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

var historyHeaders = []string{
	"Ledger ID", "Date", "Type", "Part Name", "Description", "Quantity",
	"Reference", "Reason", "User", "Reversed",
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistory renders entries as a single-sheet workbook, in the given order.
func WriteHistory(w io.Writer, entries []models.HistoryEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "History"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, historyHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		reason := ""
		if e.OptionalReason != nil {
			reason = *e.OptionalReason
		}
		reversed := "No"
		if e.IsAlreadyReversed {
			reversed = "Yes"
		}
		qty, _ := e.QuantityChange.Float64()
		values := []any{
			e.LedgerID,
			e.TransactionDate.Format("2006-01-02 15:04:05"),
			string(e.TransactionType),
			e.PartName,
			e.Description,
			qty,
			e.Reference,
			reason,
			e.CreatedBy,
			reversed,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	colWidths := []float64{10, 20, 11, 24, 30, 12, 36, 30, 14, 10}
	for i, width := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, width)
	}

	_, err := f.WriteTo(w)
	return err
}

// WriteTemplate writes an empty import workbook carrying TemplateHeaders.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Template"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, TemplateHeaders); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}
