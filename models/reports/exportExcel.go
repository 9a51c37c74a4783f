package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// WriteStockAgingExcel renders the aging report as an xlsx workbook.
// The caller owns content-type and disposition headers.
func WriteStockAgingExcel(w io.Writer, report *StockAgingResponse) error {
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	headings := []string{
		"ItemName",
		"Qty0To30", "Value0To30",
		"Qty31To60", "Value31To60",
		"Qty61To90", "Value61To90",
		"QtyOver90", "ValueOver90",
		"TotalQty", "TotalValueKwd",
	}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for i, r := range report.Rows {
		values := []interface{}{
			r.ItemName,
			r.Qty0To30, r.Value0To30,
			r.Qty31To60, r.Value31To60,
			r.Qty61To90, r.Value61To90,
			r.QtyOver90, r.ValueOver90,
			r.TotalQty, r.TotalValueKwd,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			f.SetCellValue(sheetName, cell, fmt.Sprint(v))
		}
	}

	totalRow := len(report.Rows) + 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("J%d", totalRow), report.TotalQty.String())
	f.SetCellValue(sheetName, fmt.Sprintf("K%d", totalRow), report.TotalValueKwd.String())

	return f.Write(w)
}

// WriteStockBalanceExcel renders the per-item balance report as xlsx.
func WriteStockBalanceExcel(w io.Writer, records []*StockBalanceResponse) error {
	f := excelize.NewFile()
	defer f.Close()
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "ItemName")
	f.SetCellValue(sheetName, "B1", "OpeningStock")
	f.SetCellValue(sheetName, "C1", "Purchased")
	f.SetCellValue(sheetName, "D1", "Sold")
	f.SetCellValue(sheetName, "E1", "SaleReturned")
	f.SetCellValue(sheetName, "F1", "PurchaseReturned")
	f.SetCellValue(sheetName, "G1", "Balance")

	for i, d := range records {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.ItemName)
		f.SetCellValue(sheetName, "B"+row, d.OpeningStock.String())
		f.SetCellValue(sheetName, "C"+row, d.Purchased.String())
		f.SetCellValue(sheetName, "D"+row, d.Sold.String())
		f.SetCellValue(sheetName, "E"+row, d.SaleReturned.String())
		f.SetCellValue(sheetName, "F"+row, d.PurchaseReturned.String())
		f.SetCellValue(sheetName, "G"+row, d.Balance.String())
	}

	return f.Write(w)
}
