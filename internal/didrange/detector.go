// Package didrange partitions sorted DID inventories into maximal
// contiguous numeric runs.
package didrange

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/model"
)

// Detector performs the single-pass range scan. Records created after the
// cutoff date are excluded from consideration; an excluded record does not
// break an otherwise contiguous run around it.
type Detector struct {
	cutoff time.Time
}

// New creates a Detector with the given cutoff date. Only the year, month
// and day of the cutoff are significant.
func New(cutoff time.Time) *Detector {
	return &Detector{cutoff: cutoff}
}

type entry struct {
	rec   model.DidRecord
	value uint64
}

// Detect partitions records into maximal runs where consecutive numeric
// values differ by exactly 1 and all members share an owner. Input order
// does not matter: records are sorted by (ownerID, numeric value) before
// the scan, so the partition is deterministic.
func (d *Detector) Detect(records []model.DidRecord) []model.Range {
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		if d.afterCutoff(rec.CreatedAt) {
			zap.L().Debug("skipping DID past cutoff date",
				zap.String("did", rec.Number),
				zap.Int64("owner_id", rec.OwnerID),
			)
			continue
		}
		v, err := rec.Value()
		if err != nil {
			zap.L().Warn("skipping non-numeric DID",
				zap.String("did", rec.Number),
				zap.Int64("owner_id", rec.OwnerID),
			)
			continue
		}
		entries = append(entries, entry{rec: rec, value: v})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].rec.OwnerID != entries[j].rec.OwnerID {
			return entries[i].rec.OwnerID < entries[j].rec.OwnerID
		}
		return entries[i].value < entries[j].value
	})

	var ranges []model.Range
	var current []model.DidRecord
	var lastValue uint64

	flush := func() {
		if len(current) > 0 {
			ranges = append(ranges, model.Range{OwnerID: current[0].OwnerID, Records: current})
			current = nil
		}
	}

	for _, e := range entries {
		if len(current) > 0 && e.rec.OwnerID == current[0].OwnerID && e.value == lastValue+1 {
			current = append(current, e.rec)
			lastValue = e.value
			continue
		}
		flush()
		current = []model.DidRecord{e.rec}
		lastValue = e.value
	}
	flush()

	return ranges
}

// afterCutoff reports whether a creation timestamp falls after the cutoff
// date. The comparison is date-granular: a record created any time on the
// cutoff day itself is still included.
func (d *Detector) afterCutoff(created *time.Time) bool {
	if created == nil {
		return false
	}
	cy, cm, cd := created.Date()
	ky, km, kd := d.cutoff.Date()
	createdDay := time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC)
	cutoffDay := time.Date(ky, km, kd, 0, 0, 0, 0, time.UTC)
	return createdDay.After(cutoffDay)
}

// BlockAligned reports whether a run of n numbers starting at first
// qualifies as a billable block: length ≥ 100 with the first number
// divisible by 100, or length ≥ 10 divisible by 10. The returned size is
// 100, 10, or 0.
func BlockAligned(first string, n int) int {
	if n >= 100 && strings.HasSuffix(first, "00") {
		return 100
	}
	if n >= 10 && strings.HasSuffix(first, "0") {
		return 10
	}
	return 0
}
