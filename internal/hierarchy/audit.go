package hierarchy

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/e164networks/e164bill/internal/model"
)

// MissingBlock reports an incomplete 100-number block: the shared prefix
// and the absent members in ascending order.
type MissingBlock struct {
	Prefix  string   `json:"prefix"`
	Missing []string `json:"missing"`
}

// AuditBlocks groups the DID inventory by 100-block prefix (everything but
// the last two digits) and reports blocks with absent members. A block is
// only ever as complete as the inventory: any prefix with fewer than 100
// members is flagged. DIDs too short to carry a two-digit suffix are
// ignored.
func AuditBlocks(details []model.DidDetail) []MissingBlock {
	groups := map[string]map[int]bool{}
	for _, d := range details {
		if len(d.Number) < 3 {
			continue
		}
		prefix := d.Number[:len(d.Number)-2]
		suffix, err := strconv.Atoi(d.Number[len(d.Number)-2:])
		if err != nil {
			continue
		}
		if groups[prefix] == nil {
			groups[prefix] = make(map[int]bool)
		}
		groups[prefix][suffix] = true
	}

	prefixes := make([]string, 0, len(groups))
	for p := range groups {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	var out []MissingBlock
	for _, prefix := range prefixes {
		present := groups[prefix]
		var missing []string
		for suffix := 0; suffix < 100; suffix++ {
			if !present[suffix] {
				missing = append(missing, fmt.Sprintf("%s%02d", prefix, suffix))
			}
		}
		if len(missing) > 0 {
			out = append(out, MissingBlock{Prefix: prefix, Missing: missing})
		}
	}
	return out
}
