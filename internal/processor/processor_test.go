package processor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e164networks/e164bill/internal/model"
)

type fakeStore struct {
	dids      []model.DidRecord
	rules     []model.ProductRule
	overrides []model.PriceOverride

	writeErr    error
	writeCalls  int
	lastWritten []model.ClassifiedItem
	lastScope   model.Scope
}

func (f *fakeStore) FetchDids(_ context.Context, _ model.Scope, _ time.Time) ([]model.DidRecord, error) {
	return f.dids, nil
}

func (f *fakeStore) FetchProductCatalog(_ context.Context) ([]model.ProductRule, error) {
	return f.rules, nil
}

func (f *fakeStore) FetchPriceOverrides(_ context.Context) ([]model.PriceOverride, error) {
	return f.overrides, nil
}

func (f *fakeStore) WriteClassifications(_ context.Context, scope model.Scope, items []model.ClassifiedItem) (int64, error) {
	f.writeCalls++
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.lastScope = scope
	f.lastWritten = items
	var n int64
	for _, it := range items {
		n += int64(it.Count())
	}
	return n, nil
}

var (
	cutoff = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	period = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
)

func blockDids(owner int64, start, n int) []model.DidRecord {
	var out []model.DidRecord
	for i := 0; i < n; i++ {
		out = append(out, model.DidRecord{Number: fmt.Sprintf("%d", start+i), OwnerID: owner})
	}
	return out
}

func TestProcess_BlockAndSingles(t *testing.T) {
	st := &fakeStore{}
	st.dids = append(st.dids, blockDids(7, 61130000, 100)...) // 100-block
	st.dids = append(st.dids, blockDids(7, 61130200, 6)...)   // 6 singles after a gap

	p := New(st, Options{Scope: model.ScopeClient, Cutoff: cutoff, ReportPeriod: period})
	res, err := p.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Items, 7)
	assert.Equal(t, "61130000", res.Items[0].RangeStart)
	assert.Equal(t, "61130099", res.Items[0].RangeEnd)
	assert.Equal(t, "AU-DID-100", res.Items[0].Product)
	for _, it := range res.Items[1:] {
		assert.Equal(t, "AU-DID-13", it.Product)
	}

	assert.Equal(t, 106, res.Summary.TotalDids)
	assert.Equal(t, 1, res.Summary.TotalOwners)
	assert.Equal(t, map[string]int{"AU-DID-100": 1, "AU-DID-13": 6}, res.Summary.Products)
	assert.Equal(t, 1, st.writeCalls)
	assert.Equal(t, int64(106), res.Written)
}

func TestProcess_SetupFeeOnlyInWindow(t *testing.T) {
	modified := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{dids: []model.DidRecord{
		{Number: "61290001234", OwnerID: 7, ModifiedAt: &modified},
		{Number: "61290009999", OwnerID: 7},
	}}

	p := New(st, Options{Scope: model.ScopeClient, Cutoff: cutoff, ReportPeriod: period})
	res, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	byDid := map[string]model.ClassifiedItem{}
	for _, it := range res.Items {
		byDid[it.DID] = it
	}
	assert.False(t, byDid["61290001234"].SetupCost.IsZero(), "modified last month, setup due")
	assert.True(t, byDid["61290009999"].SetupCost.IsZero(), "never modified, no setup")
	assert.False(t, byDid["61290009999"].RecurringCost.IsZero())
}

func TestProcess_CarrierResort(t *testing.T) {
	st := &fakeStore{dids: []model.DidRecord{
		{Number: "61890001111", OwnerID: 9},
		{Number: "61290001234", OwnerID: 2},
		{Number: "61390005555", OwnerID: 2},
	}}

	p := New(st, Options{Scope: model.ScopeCarrier, Cutoff: cutoff, ReportPeriod: period})
	res, err := p.Process(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	assert.Equal(t, int64(2), res.Items[0].OwnerID)
	assert.Equal(t, "61290001234", res.Items[0].DID)
	assert.Equal(t, "61390005555", res.Items[1].DID)
	assert.Equal(t, int64(9), res.Items[2].OwnerID)
	assert.Equal(t, model.ScopeCarrier, st.lastScope)
}

func TestProcess_SkippedNumbersAreNotFatal(t *testing.T) {
	st := &fakeStore{
		rules: []model.ProductRule{
			{Code: "AU-DID-1", Prefixes: []string{"612"}, ExactLength: 11, Priority: 10, BlockSize: 1},
		},
		dids: []model.DidRecord{
			{Number: "61290001234", OwnerID: 7},
			{Number: "49301111111", OwnerID: 7}, // no rule matches
		},
	}

	p := New(st, Options{Cutoff: cutoff, ReportPeriod: period})
	res, err := p.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, []string{"49301111111"}, res.Summary.SkippedDids)
}

func TestProcess_DryRunSkipsWriteBack(t *testing.T) {
	st := &fakeStore{dids: blockDids(7, 61130000, 3)}

	p := New(st, Options{Cutoff: cutoff, ReportPeriod: period, DryRun: true})
	res, err := p.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, st.writeCalls)
	assert.Equal(t, int64(0), res.Written)
}

func TestProcess_WriteBackFailureSurfaces(t *testing.T) {
	st := &fakeStore{
		dids:     blockDids(7, 61130000, 3),
		writeErr: eris.New("connection reset"),
	}

	p := New(st, Options{Cutoff: cutoff, ReportPeriod: period})
	_, err := p.Process(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write classifications")
}

func TestProcess_Idempotent(t *testing.T) {
	st := &fakeStore{}
	st.dids = append(st.dids, blockDids(4, 61130000, 100)...)
	st.dids = append(st.dids, blockDids(5, 61412345670, 10)...)

	p := New(st, Options{Cutoff: cutoff, ReportPeriod: period})
	first, err := p.Process(context.Background())
	require.NoError(t, err)
	second, err := p.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Items, second.Items)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Written, second.Written)
}
