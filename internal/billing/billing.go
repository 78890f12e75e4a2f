// Package billing aggregates monthly call history into per-reseller bills.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/e164networks/e164bill/internal/model"
)

// ExtensionBill groups one extension's calls within a client section.
type ExtensionBill struct {
	Extension    string             `json:"extension"`
	PhoneNumber  string             `json:"phone_number"`
	Plan         string             `json:"plan"`
	Duration     int64              `json:"duration"`
	ResellerCost decimal.Decimal    `json:"reseller_cost"`
	ClientCost   decimal.Decimal    `json:"client_cost"`
	Calls        []model.CallRecord `json:"calls"`
}

// ClientBill groups one client's extensions within a reseller bill.
type ClientBill struct {
	ClientID       int64           `json:"client_id"`
	ClientName     string          `json:"client_name"`
	Duration       int64           `json:"duration"`
	ResellerCost   decimal.Decimal `json:"reseller_cost"`
	ClientCost     decimal.Decimal `json:"client_cost"`
	DidCount       int             `json:"did_count"`
	ExtensionCount int             `json:"extension_count"`
	Extensions     []ExtensionBill `json:"extensions"`
}

// ResellerBill is one reseller's complete monthly bill.
type ResellerBill struct {
	ResellerID     int64           `json:"reseller_id"`
	ResellerName   string          `json:"reseller_name"`
	Duration       int64           `json:"duration"`
	ResellerCost   decimal.Decimal `json:"reseller_cost"`
	ClientCost     decimal.Decimal `json:"client_cost"`
	DidCount       int             `json:"did_count"`
	ExtensionCount int             `json:"extension_count"`
	Clients        []ClientBill    `json:"clients"`
}

// Counts carries the pre-aggregated DID and extension counts keyed by
// reseller and client ID.
type Counts struct {
	ResellerDids       map[int64]int
	ClientDids         map[int64]int
	ResellerExtensions map[int64]int
	ClientExtensions   map[int64]int
}

// Aggregate folds call records into per-reseller bills. Records are
// expected pre-sorted by reseller name, client name, extension, start
// time; grouping preserves that encounter order. Each extension section
// takes its plan name from its first call.
func Aggregate(records []model.CallRecord, counts Counts) []ResellerBill {
	var bills []ResellerBill
	resellerIdx := map[int64]int{}

	for _, rec := range records {
		ri, ok := resellerIdx[rec.ResellerID]
		if !ok {
			ri = len(bills)
			resellerIdx[rec.ResellerID] = ri
			bills = append(bills, ResellerBill{
				ResellerID:     rec.ResellerID,
				ResellerName:   rec.ResellerName,
				DidCount:       counts.ResellerDids[rec.ResellerID],
				ExtensionCount: counts.ResellerExtensions[rec.ResellerID],
			})
		}
		r := &bills[ri]
		r.Duration += rec.Duration
		r.ResellerCost = r.ResellerCost.Add(rec.ResellerCost)
		r.ClientCost = r.ClientCost.Add(rec.ClientCost)

		if len(r.Clients) == 0 || r.Clients[len(r.Clients)-1].ClientID != rec.ClientID {
			r.Clients = append(r.Clients, ClientBill{
				ClientID:       rec.ClientID,
				ClientName:     rec.ClientName,
				DidCount:       counts.ClientDids[rec.ClientID],
				ExtensionCount: counts.ClientExtensions[rec.ClientID],
			})
		}
		c := &r.Clients[len(r.Clients)-1]
		c.Duration += rec.Duration
		c.ResellerCost = c.ResellerCost.Add(rec.ResellerCost)
		c.ClientCost = c.ClientCost.Add(rec.ClientCost)

		if len(c.Extensions) == 0 || c.Extensions[len(c.Extensions)-1].Extension != rec.Extension {
			c.Extensions = append(c.Extensions, ExtensionBill{
				Extension:   rec.Extension,
				PhoneNumber: rec.PhoneNumber,
				Plan:        PlanWithDirection(rec.BillingPlan, rec.Direction),
			})
		}
		e := &c.Extensions[len(c.Extensions)-1]
		e.Duration += rec.Duration
		e.ResellerCost = e.ResellerCost.Add(rec.ResellerCost)
		e.ClientCost = e.ClientCost.Add(rec.ClientCost)
		e.Calls = append(e.Calls, rec)
	}

	return bills
}

// FormatDuration renders a second count the way the bills spell it out.
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%d hours, %d minutes, %d seconds", h, m, s)
}
