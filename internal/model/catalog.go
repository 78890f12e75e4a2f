package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductRule is one classification rule from the product catalog.
// A number matches when it carries one of the rule's prefixes and has
// exactly ExactLength digits. A rule with no prefixes and zero length is
// the catch-all. Rules are evaluated in ascending Priority; the first
// match wins.
type ProductRule struct {
	Code          string          `json:"code"`
	DisplayName   string          `json:"display_name"`
	Prefixes      []string        `json:"prefixes"`
	ExactLength   int             `json:"exact_length"`
	Priority      int             `json:"priority"`
	E164Product   int             `json:"e164_product"`
	BlockSize     int             `json:"block_size"`
	SetupCost     decimal.Decimal `json:"setup_cost"`
	RecurringCost decimal.Decimal `json:"recurring_cost"`
}

// Matches reports whether the rule claims the given number string. Block
// rules (BlockSize > 1) never match individual numbers; they are selected
// by block size during range processing.
func (r ProductRule) Matches(did string) bool {
	if r.BlockSize > 1 {
		return false
	}
	if len(r.Prefixes) == 0 && r.ExactLength == 0 {
		return true // catch-all
	}
	if r.ExactLength != 0 && len(did) != r.ExactLength {
		return false
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(did, p) {
			return true
		}
	}
	return len(r.Prefixes) == 0
}

// PriceOverride replaces a rule's default pricing for one owner, or for
// every owner when OwnerID is nil (the global tier).
type PriceOverride struct {
	ProductCode   string          `json:"product_code"`
	OwnerID       *int64          `json:"owner_id,omitempty"`
	SetupCost     decimal.Decimal `json:"setup_cost"`
	RecurringCost decimal.Decimal `json:"recurring_cost"`
}
