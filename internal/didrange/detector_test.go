package didrange

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e164networks/e164bill/internal/model"
)

func rec(number string, owner int64) model.DidRecord {
	return model.DidRecord{Number: number, OwnerID: owner}
}

func recAt(number string, owner int64, created time.Time) model.DidRecord {
	return model.DidRecord{Number: number, OwnerID: owner, CreatedAt: &created}
}

var cutoff = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

func TestDetect_ContiguousRun(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{
		rec("61290001234", 7),
		rec("61290001235", 7),
		rec("61290001236", 7),
	})

	require.Len(t, ranges, 1)
	assert.Equal(t, int64(7), ranges[0].OwnerID)
	assert.Equal(t, 3, ranges[0].Len())
	assert.Equal(t, "61290001234", ranges[0].First().Number)
	assert.Equal(t, "61290001236", ranges[0].Last().Number)
}

func TestDetect_GapSplitsRun(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{
		rec("61290001234", 7),
		rec("61290001235", 7),
		rec("61290001237", 7), // gap at ...36
	})

	require.Len(t, ranges, 2)
	assert.Equal(t, 2, ranges[0].Len())
	assert.Equal(t, 1, ranges[1].Len())
	assert.Equal(t, "61290001237", ranges[1].First().Number)
}

func TestDetect_OwnerChangeSplitsRun(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{
		rec("61290001234", 7),
		rec("61290001235", 8), // consecutive value, different owner
	})

	require.Len(t, ranges, 2)
	assert.Equal(t, int64(7), ranges[0].OwnerID)
	assert.Equal(t, int64(8), ranges[1].OwnerID)
}

func TestDetect_CutoffSkipBreaksRun(t *testing.T) {
	d := New(cutoff)
	future := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	ranges := d.Detect([]model.DidRecord{
		recAt("61290001234", 7, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
		recAt("61290001235", 7, future), // excluded
		recAt("61290001236", 7, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)),
	})

	// The excluded record leaves a genuine numeric gap between the
	// surviving neighbours.
	require.Len(t, ranges, 2)
	assert.Equal(t, "61290001234", ranges[0].First().Number)
	assert.Equal(t, "61290001236", ranges[1].First().Number)
}

func TestDetect_CreatedOnCutoffDayIncluded(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{
		recAt("61290001234", 7, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)),
	})
	require.Len(t, ranges, 1)
}

func TestDetect_NilCreatedIncluded(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{rec("61290001234", 7)})
	require.Len(t, ranges, 1)
}

func TestDetect_NonNumericSkipped(t *testing.T) {
	d := New(cutoff)
	ranges := d.Detect([]model.DidRecord{
		rec("61290001234", 7),
		rec("anonymous", 7),
	})
	require.Len(t, ranges, 1)
	assert.Equal(t, 1, ranges[0].Len())
}

func TestDetect_PartitionComplete(t *testing.T) {
	d := New(cutoff)
	var records []model.DidRecord
	for i := 0; i < 250; i++ {
		records = append(records, rec(fmt.Sprintf("611300%05d", i*2), int64(i%5)))
	}

	ranges := d.Detect(records)

	total := 0
	for _, r := range ranges {
		total += r.Len()
		for i := 1; i < r.Len(); i++ {
			prev, err := r.Records[i-1].Value()
			require.NoError(t, err)
			cur, err := r.Records[i].Value()
			require.NoError(t, err)
			assert.Equal(t, prev+1, cur)
			assert.Equal(t, r.OwnerID, r.Records[i].OwnerID)
		}
	}
	assert.Equal(t, len(records), total)
}

func TestDetect_DeterministicUnderShuffle(t *testing.T) {
	var records []model.DidRecord
	for owner := int64(1); owner <= 3; owner++ {
		for i := 0; i < 40; i++ {
			records = append(records, rec(fmt.Sprintf("6113%04d", 1000+owner*100+int64(i)), owner))
		}
	}

	d := New(cutoff)
	baseline := d.Detect(records)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]model.DidRecord, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		assert.Equal(t, baseline, d.Detect(shuffled))
	}
}

func TestBlockAligned(t *testing.T) {
	tests := []struct {
		first string
		n     int
		want  int
	}{
		{"61130000", 100, 100},
		{"61130000", 150, 100},
		{"61130050", 100, 10},  // 100 long but only 10-aligned
		{"61130010", 10, 10},
		{"61130010", 99, 10},
		{"61130100", 6, 0},  // below block threshold
		{"61130013", 10, 0}, // unaligned
		{"61130013", 100, 0},
		{"61130000", 9, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BlockAligned(tt.first, tt.n), "first=%s n=%d", tt.first, tt.n)
	}
}
