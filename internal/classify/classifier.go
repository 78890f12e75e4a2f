// Package classify assigns billing products to DID numbers and ranges.
package classify

import (
	"sort"

	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/catalog"
	"github.com/e164networks/e164bill/internal/didrange"
	"github.com/e164networks/e164bill/internal/model"
)

// Classifier applies the catalog's rules in priority order. The first
// matching rule wins; a number matching no rule is a classification gap.
type Classifier struct {
	cat   *catalog.Catalog
	rules []model.ProductRule
}

// New creates a Classifier over the catalog. The rule order used for
// matching is ascending Priority regardless of catalog storage order.
func New(cat *catalog.Catalog) *Classifier {
	rules := make([]model.ProductRule, len(cat.Rules))
	copy(rules, cat.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	return &Classifier{cat: cat, rules: rules}
}

// Classify returns the winning rule for a single number, or false when no
// rule matches.
func (c *Classifier) Classify(did string) (model.ProductRule, bool) {
	for _, r := range c.rules {
		if r.Matches(did) {
			return r, true
		}
	}
	return model.ProductRule{}, false
}

// RangeItems turns one detected range into its classified output units.
// A block-aligned range of sufficient size becomes a single item covering
// the whole range, billed under the catalog's block product; anything else
// is classified number by number. Numbers matching no rule are returned in
// skipped rather than the item list.
func (c *Classifier) RangeItems(r model.Range) (items []model.ClassifiedItem, skipped []string) {
	first := r.First()

	if size := didrange.BlockAligned(first.Number, r.Len()); size > 0 {
		if rule, ok := c.cat.BlockRule(size); ok {
			return []model.ClassifiedItem{{
				DID:         first.Number,
				RangeStart:  first.Number,
				RangeEnd:    r.Last().Number,
				Product:     rule.Code,
				OwnerID:     r.OwnerID,
				E164Product: rule.E164Product,
				RangeSize:   rule.BlockSize,
			}}, nil
		}
		zap.L().Warn("no block product for aligned range, classifying members individually",
			zap.String("range_start", first.Number),
			zap.Int("size", size),
		)
	}

	for _, rec := range r.Records {
		rule, ok := c.Classify(rec.Number)
		if !ok {
			zap.L().Warn("DID matches no product rule, skipping",
				zap.String("did", rec.Number),
				zap.Int64("owner_id", r.OwnerID),
			)
			skipped = append(skipped, rec.Number)
			continue
		}
		items = append(items, model.ClassifiedItem{
			DID:         rec.Number,
			Product:     rule.Code,
			OwnerID:     r.OwnerID,
			E164Product: rule.E164Product,
			RangeSize:   1,
		})
	}
	return items, skipped
}
