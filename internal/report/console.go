package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/e164networks/e164bill/internal/model"
)

// WriteScanTable prints classified items as an aligned table followed by
// the per-product summary.
func WriteScanTable(w io.Writer, items []model.ClassifiedItem, summary model.ScanSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DID\tRANGE START\tRANGE END\tPRODUCT\tOWNER ID\tE164 PRODUCT\tRANGE SIZE\tSETUP\tRECURRING")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			item.DID, item.RangeStart, item.RangeEnd, item.Product,
			item.OwnerID, item.E164Product, item.RangeSize,
			money(item.SetupCost), money(item.RecurringCost))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	return writeScanSummary(w, summary)
}

func writeScanSummary(w io.Writer, summary model.ScanSummary) error {
	p := message.NewPrinter(language.English)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "SUMMARY")

	products := make([]string, 0, len(summary.Products))
	for code := range summary.Products {
		products = append(products, code)
	}
	sort.Strings(products)

	fmt.Fprintln(w, "Products:")
	for _, code := range products {
		p.Fprintf(w, "  %-15s %8d\n", code, summary.Products[code])
	}

	fmt.Fprintln(w, "Totals:")
	p.Fprintf(w, "  %-18s %8d\n", "Total DIDs:", summary.TotalDids)
	p.Fprintf(w, "  %-18s %8d\n", "Total "+summary.Scope.OwnerNoun()+":", summary.TotalOwners)
	if summary.Skipped > 0 {
		p.Fprintf(w, "  %-18s %8d\n", "Skipped:", summary.Skipped)
	}
	fmt.Fprintf(w, "  %-18s %8s\n", "Setup charges:", money(summary.TotalSetup))
	_, err := fmt.Fprintf(w, "  %-18s %8s\n", "Recurring charges:", money(summary.TotalRecurring))
	return err
}
