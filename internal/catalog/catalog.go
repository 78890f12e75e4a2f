// Package catalog loads the product classification rules and price
// overrides used by a scan. The catalog is a snapshot taken once at run
// start; nothing consults the store again during classification.
package catalog

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/model"
)

// Source is the subset of the store the catalog loads from.
type Source interface {
	FetchProductCatalog(ctx context.Context) ([]model.ProductRule, error)
	FetchPriceOverrides(ctx context.Context) ([]model.PriceOverride, error)
}

// Catalog holds the ordered rule list and the override set for one run.
type Catalog struct {
	Rules     []model.ProductRule
	Overrides []model.PriceOverride
}

// Load fetches rules and overrides from the store. When the store carries
// no catalog rows the built-in default rule set is used, so a fresh
// installation classifies identically to production.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	rules, err := src.FetchProductCatalog(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: fetch product rules")
	}
	if len(rules) == 0 {
		zap.L().Info("product catalog empty, using built-in defaults")
		rules = DefaultRules()
	}

	overrides, err := src.FetchPriceOverrides(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: fetch price overrides")
	}

	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	return &Catalog{Rules: rules, Overrides: overrides}, nil
}

// Rule returns the rule with the given code.
func (c *Catalog) Rule(code string) (model.ProductRule, bool) {
	for _, r := range c.Rules {
		if r.Code == code {
			return r, true
		}
	}
	return model.ProductRule{}, false
}

// BlockRule returns the rule that bills blocks of the given size (10 or 100).
func (c *Catalog) BlockRule(size int) (model.ProductRule, bool) {
	for _, r := range c.Rules {
		if r.BlockSize == size {
			return r, true
		}
	}
	return model.ProductRule{}, false
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultRules returns the production rule set. Priority order matters:
// the most specific prefix+length rules come first, the catch-all last.
// Block products (AU-DID-10, AU-DID-100) are never matched by prefix; they
// are selected by block size during range processing.
func DefaultRules() []model.ProductRule {
	return []model.ProductRule{
		{
			Code: "AU-DID-13", DisplayName: "AU 13 Number",
			Prefixes: []string{"6113"}, ExactLength: 8, Priority: 10,
			E164Product: 1, BlockSize: 1,
			SetupCost: money("50.00"), RecurringCost: money("20.00"),
		},
		{
			Code: "AU-DID-1300", DisplayName: "AU 1300 Number",
			Prefixes: []string{"611300"}, ExactLength: 12, Priority: 20,
			E164Product: 1, BlockSize: 1,
			SetupCost: money("60.00"), RecurringCost: money("15.00"),
		},
		{
			Code: "AU-DID-1800", DisplayName: "AU 1800 Number",
			Prefixes: []string{"611800"}, ExactLength: 12, Priority: 30,
			E164Product: 1, BlockSize: 1,
			SetupCost: money("60.00"), RecurringCost: money("15.00"),
		},
		{
			Code: "AU-DIDMOB-1", DisplayName: "AU Mobile Number",
			Prefixes: []string{"614"}, ExactLength: 11, Priority: 40,
			E164Product: 1, BlockSize: 1,
			SetupCost: money("15.00"), RecurringCost: money("5.00"),
		},
		{
			Code: "AU-DID-1", DisplayName: "AU Geographic Number",
			Prefixes: []string{"612", "613", "617", "618"}, ExactLength: 11, Priority: 50,
			E164Product: 1, BlockSize: 1,
			SetupCost: money("10.00"), RecurringCost: money("2.50"),
		},
		{
			Code: "AU-DID-10", DisplayName: "AU Geographic 10 Block",
			Priority: 80, E164Product: 3, BlockSize: 10,
			SetupCost: money("80.00"), RecurringCost: money("20.00"),
		},
		{
			Code: "AU-DID-100", DisplayName: "AU Geographic 100 Block",
			Priority: 90, E164Product: 4, BlockSize: 100,
			SetupCost: money("500.00"), RecurringCost: money("150.00"),
		},
		{
			Code: "DEFAULT-PLAN", DisplayName: "Default Plan",
			Priority: 100, E164Product: 1, BlockSize: 1,
			SetupCost: money("0.00"), RecurringCost: money("1.00"),
		},
	}
}
