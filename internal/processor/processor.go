// Package processor drives a full DID scan: fetch, range detection,
// classification, pricing, write-back, summary.
package processor

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/e164networks/e164bill/internal/catalog"
	"github.com/e164networks/e164bill/internal/classify"
	"github.com/e164networks/e164bill/internal/didrange"
	"github.com/e164networks/e164bill/internal/model"
	"github.com/e164networks/e164bill/internal/pricing"
)

// Store is the persistence surface the processor consumes.
type Store interface {
	FetchDids(ctx context.Context, scope model.Scope, cutoff time.Time) ([]model.DidRecord, error)
	FetchProductCatalog(ctx context.Context) ([]model.ProductRule, error)
	FetchPriceOverrides(ctx context.Context) ([]model.PriceOverride, error)
	WriteClassifications(ctx context.Context, scope model.Scope, items []model.ClassifiedItem) (int64, error)
}

// Options configure one processing run.
type Options struct {
	Scope        model.Scope
	Cutoff       time.Time // exclusive upper bound on DID creation date
	ReportPeriod time.Time // billing month, used for setup-fee timing
	DryRun       bool      // skip write-back
}

// Processor runs the classification pipeline. All fetches complete before
// the pure phases begin; classification itself performs no I/O.
type Processor struct {
	store Store
	opts  Options
}

// New creates a Processor.
func New(store Store, opts Options) *Processor {
	if opts.Scope == "" {
		opts.Scope = model.ScopeClient
	}
	return &Processor{store: store, opts: opts}
}

// Result is the output of one run.
type Result struct {
	Items   []model.ClassifiedItem
	Summary model.ScanSummary
	Written int64
}

// Process executes the run: fetch DIDs and catalog concurrently, detect
// ranges, classify and price, re-sort for carrier scope, then apply the
// write-back in one batch. Unclassifiable numbers are skipped and counted,
// never fatal.
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	var (
		records []model.DidRecord
		cat     *catalog.Catalog
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = p.store.FetchDids(gCtx, p.opts.Scope, p.opts.Cutoff)
		if err != nil {
			return eris.Wrap(err, "processor: fetch dids")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cat, err = catalog.Load(gCtx, p.store)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("fetched DID inventory",
		zap.String("scope", string(p.opts.Scope)),
		zap.Int("records", len(records)),
		zap.Int("rules", len(cat.Rules)),
		zap.Int("overrides", len(cat.Overrides)),
	)

	detector := didrange.New(p.opts.Cutoff)
	classifier := classify.New(cat)
	resolver := pricing.NewResolver(cat.Rules, cat.Overrides)

	var (
		items      []model.ClassifiedItem
		skippedAll []string
	)
	for _, r := range detector.Detect(records) {
		rangeItems, skipped := classifier.RangeItems(r)
		skippedAll = append(skippedAll, skipped...)

		modified := modifiedIndex(r)
		for i := range rangeItems {
			resolver.Price(&rangeItems[i], modified[rangeItems[i].DID], p.opts.ReportPeriod)
		}
		items = append(items, rangeItems...)
	}

	// Carrier reports aggregate across reseller boundaries, so the final
	// collection is re-sorted for stable report ordering.
	if p.opts.Scope == model.ScopeCarrier {
		sortItems(items)
	}

	result := &Result{
		Items:   items,
		Summary: summarize(p.opts.Scope, items, skippedAll),
	}

	if p.opts.DryRun {
		zap.L().Info("dry run, skipping write-back", zap.Int("items", len(items)))
		return result, nil
	}

	written, err := p.store.WriteClassifications(ctx, p.opts.Scope, items)
	if err != nil {
		return nil, eris.Wrap(err, "processor: write classifications")
	}
	result.Written = written
	zap.L().Info("classification write-back applied",
		zap.Int64("rows", written),
		zap.Int("items", len(items)),
	)

	return result, nil
}

// modifiedIndex maps each member number of a range to its modification
// timestamp. A block item carries its first number, so the lookup also
// works for blocks.
func modifiedIndex(r model.Range) map[string]*time.Time {
	idx := make(map[string]*time.Time, len(r.Records))
	for _, rec := range r.Records {
		idx[rec.Number] = rec.ModifiedAt
	}
	return idx
}

func sortItems(items []model.ClassifiedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OwnerID != items[j].OwnerID {
			return items[i].OwnerID < items[j].OwnerID
		}
		vi, _ := strconv.ParseUint(items[i].DID, 10, 64)
		vj, _ := strconv.ParseUint(items[j].DID, 10, 64)
		return vi < vj
	})
}

func summarize(scope model.Scope, items []model.ClassifiedItem, skipped []string) model.ScanSummary {
	s := model.ScanSummary{
		Scope:          scope,
		Products:       make(map[string]int),
		Skipped:        len(skipped),
		SkippedDids:    skipped,
		TotalSetup:     decimal.Zero,
		TotalRecurring: decimal.Zero,
	}
	owners := make(map[int64]struct{})
	for _, it := range items {
		s.Products[it.Product]++
		s.TotalDids += it.Count()
		s.TotalSetup = s.TotalSetup.Add(it.SetupCost)
		s.TotalRecurring = s.TotalRecurring.Add(it.RecurringCost)
		owners[it.OwnerID] = struct{}{}
	}
	s.TotalOwners = len(owners)
	return s
}
