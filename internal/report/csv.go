package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/e164networks/e164bill/internal/billing"
	"github.com/e164networks/e164bill/internal/model"
)

var scanHeader = []string{
	"did", "range_start", "range_end", "did_product", "owner_id",
	"E164_product", "range_size", "setup_cost", "recurring_cost",
}

// WriteScanCSV writes classified items as flat CSV, one row per item.
func WriteScanCSV(w io.Writer, items []model.ClassifiedItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scanHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, item := range items {
		row := []string{
			item.DID,
			item.RangeStart,
			item.RangeEnd,
			item.Product,
			strconv.FormatInt(item.OwnerID, 10),
			strconv.Itoa(item.E164Product),
			strconv.Itoa(item.RangeSize),
			item.SetupCost.StringFixed(2),
			item.RecurringCost.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush csv")
}

// WriteBillCSV writes one reseller's monthly bill in the legacy sectioned
// layout: a reseller summary, then per-client sections with per-extension
// call detail records, then the DID appendix.
func WriteBillCSV(w io.Writer, bill billing.ResellerBill, dids []model.DidDetail) error {
	cw := csv.NewWriter(w)

	write := func(row ...string) {
		// csv.Writer latches the first error; checked at flush.
		_ = cw.Write(row)
	}

	write("Company Name:", bill.ResellerName, "Reseller ID:", strconv.FormatInt(bill.ResellerID, 10))
	write("Total Call Time:", billing.FormatDuration(bill.Duration))
	write("Total Client Billables:", money(bill.ClientCost))
	write("Total Reseller Cost:", money(bill.ResellerCost))
	write("Total Reseller DIDs:", strconv.Itoa(bill.DidCount))
	write("Total Reseller Extensions:", strconv.Itoa(bill.ExtensionCount))

	for _, client := range bill.Clients {
		write()
		write("Client Name:", client.ClientName, "Client ID:", strconv.FormatInt(client.ClientID, 10))
		write("Client Call Time:", billing.FormatDuration(client.Duration))
		write("Client Billables:", money(client.ClientCost))
		write("Client DIDs:", strconv.Itoa(client.DidCount))
		write("Client Extensions:", strconv.Itoa(client.ExtensionCount))
		write("Reseller Cost:", money(client.ResellerCost))
		write()

		for i, ext := range client.Extensions {
			if i > 0 {
				write()
			}
			write("Phone Number:", ext.PhoneNumber, "Extension:", ext.Extension)
			write("Plan:", ext.Plan)
			write("Call Time:", billing.FormatDuration(ext.Duration))
			write("Client Billables:", money(ext.ClientCost))
			write("Reseller Cost:", money(ext.ResellerCost))
			write("Call Detail Records (CDRs)")
			write("Start", "Source", "Destination", "Duration",
				"Reseller Cost", "Client Cost", "Caller IP", "Call ID", "Hangup Cause")
			for _, c := range ext.Calls {
				write(
					c.Start.Format("2006-01-02 15:04:05"),
					c.Extension,
					c.Destination,
					strconv.FormatInt(c.Duration, 10),
					c.ResellerCost.String(),
					c.ClientCost.String(),
					c.CallerIP,
					c.CallID,
					c.HangupCause,
				)
			}
		}
	}

	writeDidAppendix(cw, bill, dids)

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush bill csv")
}

func writeDidAppendix(cw *csv.Writer, bill billing.ResellerBill, dids []model.DidDetail) {
	_ = cw.Write(nil)
	_ = cw.Write([]string{"Reseller DIDs"})
	_ = cw.Write([]string{"Total DIDs:", strconv.Itoa(bill.DidCount)})
	_ = cw.Write([]string{"did", "reseller_id", "client_id", "client_name", "created_date"})

	for _, d := range dids {
		if d.ResellerID != bill.ResellerID {
			continue
		}
		clientID := ""
		if d.ClientID != nil {
			clientID = strconv.FormatInt(*d.ClientID, 10)
		}
		created := ""
		if d.CreatedAt != nil {
			created = d.CreatedAt.Format("2006-01-02 15:04:05")
		}
		_ = cw.Write([]string{d.Number, strconv.FormatInt(d.ResellerID, 10), clientID, d.OwnerName, created})
	}
}
