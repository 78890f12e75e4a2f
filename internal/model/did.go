package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Scope selects which ownership column of the DID inventory a run operates on.
type Scope string

const (
	ScopeClient   Scope = "CLIENT"
	ScopeReseller Scope = "RESELLER"
	ScopeCarrier  Scope = "CARRIER"
)

// OwnerNoun returns the human label for owners under this scope,
// used in summary output.
func (s Scope) OwnerNoun() string {
	switch s {
	case ScopeReseller:
		return "Resellers"
	case ScopeCarrier:
		return "Carriers"
	default:
		return "Clients"
	}
}

// DidRecord is one phone number row from the inventory. The number is kept
// as a string because leading zeros are significant for display and lookups;
// adjacency and ordering compare the unsigned integer value.
type DidRecord struct {
	Number     string     `json:"did"`
	OwnerID    int64      `json:"owner_id"`
	CreatedAt  *time.Time `json:"cr_date,omitempty"`
	ModifiedAt *time.Time `json:"mod_date,omitempty"`
}

// Value returns the number's unsigned integer value.
func (d DidRecord) Value() (uint64, error) {
	return strconv.ParseUint(d.Number, 10, 64)
}

// Range is a maximal run of same-owner records whose numeric values are
// consecutive. Records preserve input order (ascending value).
type Range struct {
	OwnerID int64       `json:"owner_id"`
	Records []DidRecord `json:"records"`
}

// First returns the lowest number in the range.
func (r Range) First() DidRecord { return r.Records[0] }

// Last returns the highest number in the range.
func (r Range) Last() DidRecord { return r.Records[len(r.Records)-1] }

// Len returns the number of members.
func (r Range) Len() int { return len(r.Records) }

// ClassifiedItem is one output unit of a scan: either a whole block
// (RangeStart/RangeEnd set) or a single number (both empty).
type ClassifiedItem struct {
	DID           string          `json:"did"`
	RangeStart    string          `json:"range_start,omitempty"`
	RangeEnd      string          `json:"range_end,omitempty"`
	Product       string          `json:"did_product"`
	OwnerID       int64           `json:"owner_id"`
	E164Product   int             `json:"e164_product"`
	RangeSize     int             `json:"range_size"`
	SetupCost     decimal.Decimal `json:"setup_cost"`
	RecurringCost decimal.Decimal `json:"recurring_cost"`
}

// IsBlock reports whether the item covers a contiguous block of numbers.
func (c ClassifiedItem) IsBlock() bool { return c.RangeStart != "" }

// Count returns how many numbers the item represents.
func (c ClassifiedItem) Count() int {
	if !c.IsBlock() {
		return 1
	}
	start, err1 := strconv.ParseUint(c.RangeStart, 10, 64)
	end, err2 := strconv.ParseUint(c.RangeEnd, 10, 64)
	if err1 != nil || err2 != nil || end < start {
		return 1
	}
	return int(end - start + 1)
}

// ScanSummary aggregates one didscan run for reporting.
type ScanSummary struct {
	Scope          Scope           `json:"scope"`
	Products       map[string]int  `json:"products"`
	TotalDids      int             `json:"total_dids"`
	TotalOwners    int             `json:"total_owners"`
	Skipped        int             `json:"skipped"`
	SkippedDids    []string        `json:"skipped_dids,omitempty"`
	TotalSetup     decimal.Decimal `json:"total_setup"`
	TotalRecurring decimal.Decimal `json:"total_recurring"`
}
