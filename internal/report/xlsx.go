package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/e164networks/e164bill/internal/model"
)

// WriteScanXLSX writes classified items to a workbook with a Ranges sheet
// and a Summary sheet.
func WriteScanXLSX(w io.Writer, items []model.ClassifiedItem, summary model.ScanSummary) error {
	f := xlsx.NewFile()

	ranges, err := f.AddSheet("Ranges")
	if err != nil {
		return eris.Wrap(err, "report: add ranges sheet")
	}
	header := ranges.AddRow()
	for _, col := range scanHeader {
		header.AddCell().SetString(col)
	}
	for _, item := range items {
		row := ranges.AddRow()
		row.AddCell().SetString(item.DID)
		row.AddCell().SetString(item.RangeStart)
		row.AddCell().SetString(item.RangeEnd)
		row.AddCell().SetString(item.Product)
		row.AddCell().SetInt64(item.OwnerID)
		row.AddCell().SetInt(item.E164Product)
		row.AddCell().SetInt(item.RangeSize)
		row.AddCell().SetString(item.SetupCost.StringFixed(2))
		row.AddCell().SetString(item.RecurringCost.StringFixed(2))
	}

	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	products := make([]string, 0, len(summary.Products))
	for code := range summary.Products {
		products = append(products, code)
	}
	sort.Strings(products)

	row := sheet.AddRow()
	row.AddCell().SetString("Product")
	row.AddCell().SetString("Count")
	for _, code := range products {
		row = sheet.AddRow()
		row.AddCell().SetString(code)
		row.AddCell().SetInt(summary.Products[code])
	}

	sheet.AddRow()
	addPair := func(label, value string) {
		r := sheet.AddRow()
		r.AddCell().SetString(label)
		r.AddCell().SetString(value)
	}
	addPair("Scope", string(summary.Scope))
	addPair("Total DIDs", strconv.Itoa(summary.TotalDids))
	addPair("Total "+summary.Scope.OwnerNoun(), strconv.Itoa(summary.TotalOwners))
	addPair("Skipped", strconv.Itoa(summary.Skipped))
	addPair("Setup charges", money(summary.TotalSetup))
	addPair("Recurring charges", money(summary.TotalRecurring))

	return eris.Wrap(f.Write(w), "report: write workbook")
}
