package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/e164networks/e164bill/internal/db"
	"github.com/e164networks/e164bill/internal/model"
	"github.com/e164networks/e164bill/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried with backoff so a briefly unavailable database does not
// fail the run outright.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("postgres", "ping")
	if err := resilience.Do(ctx, retryCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the run log).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS e164_products (
	code           TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL,
	prefixes       TEXT[] NOT NULL DEFAULT '{}',
	exact_length   INTEGER NOT NULL DEFAULT 0,
	priority       INTEGER NOT NULL,
	e164_product   INTEGER NOT NULL DEFAULT 1,
	block_size     INTEGER NOT NULL DEFAULT 1,
	setup_cost     NUMERIC(12,4) NOT NULL DEFAULT 0,
	recurring_cost NUMERIC(12,4) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS e164_price_overrides (
	product_code   TEXT NOT NULL REFERENCES e164_products(code),
	owner_id       BIGINT,
	setup_cost     NUMERIC(12,4) NOT NULL DEFAULT 0,
	recurring_cost NUMERIC(12,4) NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_price_overrides_owner
	ON e164_price_overrides(product_code, owner_id) WHERE owner_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_price_overrides_global
	ON e164_price_overrides(product_code) WHERE owner_id IS NULL;

CREATE TABLE IF NOT EXISTS billing_run_log (
	id            TEXT PRIMARY KEY,
	scope         TEXT NOT NULL,
	cutoff_date   DATE NOT NULL,
	report_period DATE NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ,
	items_written BIGINT NOT NULL DEFAULT 0,
	skipped       BIGINT NOT NULL DEFAULT 0,
	error         TEXT
);

CREATE INDEX IF NOT EXISTS idx_billing_run_log_started ON billing_run_log(started_at DESC);

ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_client_product INTEGER;
ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_client_range_size INTEGER;
ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_reseller_product INTEGER;
ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_reseller_range_size INTEGER;
ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_carrier_product INTEGER;
ALTER TABLE channel_did ADD COLUMN IF NOT EXISTS e164_carrier_range_size INTEGER;
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FetchDids(ctx context.Context, scope model.Scope, cutoff time.Time) ([]model.DidRecord, error) {
	ownerCol := "client_id"
	if scope != model.ScopeClient {
		// Both RESELLER and CARRIER views key on reseller_id.
		ownerCol = "reseller_id"
	}

	// The cutoff is date-granular and inclusive of the cutoff day itself.
	cutoffEnd := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	rows, err := s.pool.Query(ctx,
		`SELECT did, `+ownerCol+`, cr_date, mod_date
		 FROM channel_did
		 WHERE `+ownerCol+` IS NOT NULL
		   AND (cr_date IS NULL OR cr_date < $1)
		 ORDER BY `+ownerCol+`, CAST(did AS BIGINT)`,
		cutoffEnd,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch dids")
	}
	defer rows.Close()

	var out []model.DidRecord
	for rows.Next() {
		var rec model.DidRecord
		if err := rows.Scan(&rec.Number, &rec.OwnerID, &rec.CreatedAt, &rec.ModifiedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan did")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch dids")
}

// classificationColumns maps the run scope to the channel_did column
// family its results are written to.
func classificationColumns(scope model.Scope) (productCol, sizeCol, ownerCol string) {
	switch scope {
	case model.ScopeReseller:
		return "e164_reseller_product", "e164_reseller_range_size", "reseller_id"
	case model.ScopeCarrier:
		return "e164_carrier_product", "e164_carrier_range_size", "reseller_id"
	default:
		return "e164_client_product", "e164_client_range_size", "client_id"
	}
}

// WriteClassifications applies the full batch of classification
// annotations in one transaction. Updates set absolute values, so a re-run
// with identical inputs leaves the table unchanged.
func (s *PostgresStore) WriteClassifications(ctx context.Context, scope model.Scope, items []model.ClassifiedItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	productCol, sizeCol, ownerCol := classificationColumns(scope)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: write classifications: begin")
	}
	defer tx.Rollback(ctx)

	var total int64
	for _, it := range items {
		var sql string
		var args []any
		if it.IsBlock() {
			sql = `UPDATE channel_did SET ` + productCol + ` = $1, ` + sizeCol + ` = $2
			       WHERE ` + ownerCol + ` = $3 AND CAST(did AS BIGINT) BETWEEN CAST($4 AS BIGINT) AND CAST($5 AS BIGINT)`
			args = []any{it.E164Product, it.RangeSize, it.OwnerID, it.RangeStart, it.RangeEnd}
		} else {
			sql = `UPDATE channel_did SET ` + productCol + ` = $1, ` + sizeCol + ` = $2
			       WHERE ` + ownerCol + ` = $3 AND did = $4`
			args = []any{it.E164Product, it.RangeSize, it.OwnerID, it.DID}
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: write classification for %s", it.DID)
		}
		total += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: write classifications: commit")
	}
	return total, nil
}

func (s *PostgresStore) FetchProductCatalog(ctx context.Context) ([]model.ProductRule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, display_name, prefixes, exact_length, priority, e164_product, block_size,
		        setup_cost::text, recurring_cost::text
		 FROM e164_products ORDER BY priority`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch product catalog")
	}
	defer rows.Close()

	var out []model.ProductRule
	for rows.Next() {
		var r model.ProductRule
		var setup, recurring string
		if err := rows.Scan(&r.Code, &r.DisplayName, &r.Prefixes, &r.ExactLength, &r.Priority,
			&r.E164Product, &r.BlockSize, &setup, &recurring); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product rule")
		}
		if r.SetupCost, err = decimal.NewFromString(setup); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse setup cost for %s", r.Code)
		}
		if r.RecurringCost, err = decimal.NewFromString(recurring); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse recurring cost for %s", r.Code)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch product catalog")
}

func (s *PostgresStore) FetchPriceOverrides(ctx context.Context) ([]model.PriceOverride, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_code, owner_id, setup_cost::text, recurring_cost::text
		 FROM e164_price_overrides`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch price overrides")
	}
	defer rows.Close()

	var out []model.PriceOverride
	for rows.Next() {
		var ov model.PriceOverride
		var setup, recurring string
		if err := rows.Scan(&ov.ProductCode, &ov.OwnerID, &setup, &recurring); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price override")
		}
		if ov.SetupCost, err = decimal.NewFromString(setup); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse override setup cost for %s", ov.ProductCode)
		}
		if ov.RecurringCost, err = decimal.NewFromString(recurring); err != nil {
			return nil, eris.Wrapf(err, "postgres: parse override recurring cost for %s", ov.ProductCode)
		}
		out = append(out, ov)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch price overrides")
}

// SeedCatalog bulk-upserts product rules into e164_products, keyed on code.
func (s *PostgresStore) SeedCatalog(ctx context.Context, rules []model.ProductRule) (int64, error) {
	rows := make([][]any, 0, len(rules))
	for _, r := range rules {
		prefixes := r.Prefixes
		if prefixes == nil {
			prefixes = []string{}
		}
		rows = append(rows, []any{
			r.Code, r.DisplayName, prefixes, r.ExactLength, r.Priority,
			r.E164Product, r.BlockSize, r.SetupCost.String(), r.RecurringCost.String(),
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "e164_products",
		Columns: []string{
			"code", "display_name", "prefixes", "exact_length", "priority",
			"e164_product", "block_size", "setup_cost", "recurring_cost",
		},
		ConflictKeys: []string{"code"},
	}, rows)
	return n, eris.Wrap(err, "postgres: seed catalog")
}

func (s *PostgresStore) FetchCallRecords(ctx context.Context, year int, month time.Month) ([]model.CallRecord, error) {
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	rows, err := s.pool.Query(ctx,
		`SELECT ch.client_reseller_id, r.company, ch.client_client_id, c.company,
		        ch.flow, ch.billingplan, ch.disposion, ch.start, ch.extension_number,
		        CASE WHEN ch.did IS NULL OR ch.did = '' THEN 'N/A' ELSE ch.did END,
		        ch.partyid, ch.prefix, ch.duration,
		        ch.costres::text, ch.costcl::text,
		        split_part(ch.caller_info, ':', 1), ch.callid, ch.hangupcause
		 FROM call_history ch
		 JOIN client r ON ch.client_reseller_id = r.id
		 JOIN client c ON ch.client_client_id = c.id
		 WHERE ch.disposion = 'ANSWERED'
		   AND ch.flow IN ('in', 'out')
		   AND ch.costadmin > 0 AND ch.costres > 0
		   AND ch.calltype != 'local'
		   AND ch.start >= $1 AND ch.start < $2
		 ORDER BY r.company, c.company, ch.extension_number, ch.start`,
		periodStart, periodEnd,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch call records")
	}
	defer rows.Close()

	var out []model.CallRecord
	for rows.Next() {
		var cr model.CallRecord
		var resCost, clCost string
		if err := rows.Scan(&cr.ResellerID, &cr.ResellerName, &cr.ClientID, &cr.ClientName,
			&cr.Direction, &cr.BillingPlan, &cr.Disposition, &cr.Start, &cr.Extension,
			&cr.PhoneNumber, &cr.Destination, &cr.ChargingZone, &cr.Duration,
			&resCost, &clCost, &cr.CallerIP, &cr.CallID, &cr.HangupCause); err != nil {
			return nil, eris.Wrap(err, "postgres: scan call record")
		}
		if cr.ResellerCost, err = decimal.NewFromString(resCost); err != nil {
			return nil, eris.Wrap(err, "postgres: parse reseller cost")
		}
		if cr.ClientCost, err = decimal.NewFromString(clCost); err != nil {
			return nil, eris.Wrap(err, "postgres: parse client cost")
		}
		out = append(out, cr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch call records")
}

func (s *PostgresStore) FetchDidCounts(ctx context.Context) (resellers, clients map[int64]int, err error) {
	resellers, err = s.countQuery(ctx,
		`SELECT r.id, COUNT(*)
		 FROM channel_did d
		 JOIN client r ON d.reseller_id = r.id
		 WHERE r.level = $1
		 GROUP BY r.id`, model.LevelReseller)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: reseller did counts")
	}

	clients, err = s.countQuery(ctx,
		`SELECT c.id, COUNT(*)
		 FROM channel_did d
		 JOIN client c ON d.client_id = c.id
		 GROUP BY c.id`)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: client did counts")
	}
	return resellers, clients, nil
}

func (s *PostgresStore) FetchExtensionCounts(ctx context.Context) (resellers, clients map[int64]int, err error) {
	resellers, err = s.countQuery(ctx,
		`SELECT r.id, COUNT(DISTINCT e.extended_number)
		 FROM extension e
		 LEFT JOIN client c ON e.client_id = c.id
		 LEFT JOIN client pc ON c.parent_client_id = pc.id AND c.level = $2
		 JOIN client r ON (c.level = $3 AND c.parent_client_id = r.id)
		               OR (c.level = $2 AND pc.parent_client_id = r.id)
		 WHERE r.level = $1
		 GROUP BY r.id`, model.LevelReseller, model.LevelUser, model.LevelClient)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: reseller extension counts")
	}

	clients, err = s.countQuery(ctx,
		`SELECT COALESCE(pc.id, c.id), COUNT(DISTINCT e.extended_number)
		 FROM extension e
		 LEFT JOIN client c ON e.client_id = c.id
		 LEFT JOIN client pc ON c.parent_client_id = pc.id AND c.level = $2
		 WHERE c.level IN ($1, $2)
		 GROUP BY COALESCE(pc.id, c.id)`, model.LevelClient, model.LevelUser)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: client extension counts")
	}
	return resellers, clients, nil
}

func (s *PostgresStore) countQuery(ctx context.Context, sql string, args ...any) (map[int64]int, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *PostgresStore) FetchClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, parent_client_id, company, level FROM client ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Company, &c.Level); err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch clients")
}

func (s *PostgresStore) FetchDidDetails(ctx context.Context) ([]model.DidDetail, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cd.did, COALESCE(cd.reseller_id, 1), cd.client_id,
		        COALESCE(c.company, r.company, 'Owner'),
		        COALESCE(ep.code, ''), cd.cr_date
		 FROM channel_did cd
		 LEFT JOIN client c ON cd.client_id = c.id
		 LEFT JOIN client r ON cd.reseller_id = r.id
		 LEFT JOIN (
		     SELECT e164_product, MIN(code) AS code
		     FROM e164_products GROUP BY e164_product
		 ) ep ON cd.e164_carrier_product = ep.e164_product
		 ORDER BY CAST(cd.did AS BIGINT)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch did details")
	}
	defer rows.Close()

	var out []model.DidDetail
	for rows.Next() {
		var d model.DidDetail
		if err := rows.Scan(&d.Number, &d.ResellerID, &d.ClientID, &d.OwnerName, &d.ProductCode, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan did detail")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: fetch did details")
}
