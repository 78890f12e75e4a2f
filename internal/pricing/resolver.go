// Package pricing resolves setup and recurring costs for classified DIDs.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/e164networks/e164bill/internal/model"
)

// Resolver answers (product, owner) price lookups with three-tier
// fallback: an owner-specific override wins over a global override, which
// wins over the rule's built-in default. The first tier found is used
// whole; tiers are never merged.
type Resolver struct {
	defaults map[string]model.ProductRule
	owner    map[overrideKey]model.PriceOverride
	global   map[string]model.PriceOverride
}

type overrideKey struct {
	product string
	owner   int64
}

// NewResolver indexes the catalog rules and overrides for lookup.
func NewResolver(rules []model.ProductRule, overrides []model.PriceOverride) *Resolver {
	r := &Resolver{
		defaults: make(map[string]model.ProductRule, len(rules)),
		owner:    make(map[overrideKey]model.PriceOverride),
		global:   make(map[string]model.PriceOverride),
	}
	for _, rule := range rules {
		r.defaults[rule.Code] = rule
	}
	for _, ov := range overrides {
		if ov.OwnerID != nil {
			r.owner[overrideKey{ov.ProductCode, *ov.OwnerID}] = ov
		} else {
			r.global[ov.ProductCode] = ov
		}
	}
	return r
}

// Resolve returns the setup and recurring cost for a (product, owner)
// pair. Resolution always terminates with a cost: an unknown product with
// no override row prices at zero.
func (r *Resolver) Resolve(productCode string, ownerID int64) (setup, recurring decimal.Decimal) {
	if ov, ok := r.owner[overrideKey{productCode, ownerID}]; ok {
		return ov.SetupCost, ov.RecurringCost
	}
	if ov, ok := r.global[productCode]; ok {
		return ov.SetupCost, ov.RecurringCost
	}
	if rule, ok := r.defaults[productCode]; ok {
		return rule.SetupCost, rule.RecurringCost
	}
	return decimal.Zero, decimal.Zero
}

// ShouldChargeSetup reports whether a setup fee applies in the given
// report period. A number is billed its setup fee exactly once, in the run
// for the month after it was last modified; with no modification timestamp
// no setup fee is ever charged.
func ShouldChargeSetup(modifiedAt *time.Time, reportPeriod time.Time) bool {
	if modifiedAt == nil {
		return false
	}
	// First of the report month, stepped back one month. AddDate on the
	// first of the month cannot overflow into a third month.
	periodStart := time.Date(reportPeriod.Year(), reportPeriod.Month(), 1, 0, 0, 0, 0, time.UTC)
	prev := periodStart.AddDate(0, -1, 0)
	return modifiedAt.Year() == prev.Year() && modifiedAt.Month() == prev.Month()
}

// Price resolves the chargeable costs for one classified item. Recurring
// is always charged in full; setup is charged only when the modification
// timestamp falls in the month before the report period.
func (r *Resolver) Price(item *model.ClassifiedItem, modifiedAt *time.Time, reportPeriod time.Time) {
	setup, recurring := r.Resolve(item.Product, item.OwnerID)
	if !ShouldChargeSetup(modifiedAt, reportPeriod) {
		setup = decimal.Zero
	}
	item.SetupCost = setup
	item.RecurringCost = recurring
}
