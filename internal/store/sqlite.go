package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/e164networks/e164bill/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs offline
// and development runs; the schema mirrors the production tables closely
// enough for the engine and its tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS channel_did (
	did                      TEXT PRIMARY KEY,
	client_id                INTEGER,
	reseller_id              INTEGER,
	cr_date                  DATETIME,
	mod_date                 DATETIME,
	e164_client_product      INTEGER,
	e164_client_range_size   INTEGER,
	e164_reseller_product    INTEGER,
	e164_reseller_range_size INTEGER,
	e164_carrier_product     INTEGER,
	e164_carrier_range_size  INTEGER
);

CREATE TABLE IF NOT EXISTS client (
	id               INTEGER PRIMARY KEY,
	parent_client_id INTEGER,
	company          TEXT NOT NULL DEFAULT '',
	level            INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS extension (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id       INTEGER,
	extended_number TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS call_history (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	client_reseller_id INTEGER NOT NULL,
	client_client_id   INTEGER NOT NULL,
	flow               TEXT NOT NULL,
	billingplan        TEXT NOT NULL DEFAULT '',
	disposion          TEXT NOT NULL DEFAULT '',
	calltype           TEXT NOT NULL DEFAULT '',
	start              DATETIME NOT NULL,
	extension_number   TEXT NOT NULL DEFAULT '',
	did                TEXT,
	partyid            TEXT NOT NULL DEFAULT '',
	prefix             TEXT NOT NULL DEFAULT '',
	duration           INTEGER NOT NULL DEFAULT 0,
	costadmin          REAL NOT NULL DEFAULT 0,
	costres            TEXT NOT NULL DEFAULT '0',
	costcl             TEXT NOT NULL DEFAULT '0',
	caller_info        TEXT NOT NULL DEFAULT '',
	callid             TEXT NOT NULL DEFAULT '',
	hangupcause        TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS e164_products (
	code           TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL,
	prefixes       TEXT NOT NULL DEFAULT '',
	exact_length   INTEGER NOT NULL DEFAULT 0,
	priority       INTEGER NOT NULL,
	e164_product   INTEGER NOT NULL DEFAULT 1,
	block_size     INTEGER NOT NULL DEFAULT 1,
	setup_cost     TEXT NOT NULL DEFAULT '0',
	recurring_cost TEXT NOT NULL DEFAULT '0'
);

CREATE TABLE IF NOT EXISTS e164_price_overrides (
	product_code   TEXT NOT NULL,
	owner_id       INTEGER,
	setup_cost     TEXT NOT NULL DEFAULT '0',
	recurring_cost TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_channel_did_client ON channel_did(client_id);
CREATE INDEX IF NOT EXISTS idx_channel_did_reseller ON channel_did(reseller_id);
CREATE INDEX IF NOT EXISTS idx_call_history_start ON call_history(start);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FetchDids(ctx context.Context, scope model.Scope, cutoff time.Time) ([]model.DidRecord, error) {
	ownerCol := "client_id"
	if scope != model.ScopeClient {
		ownerCol = "reseller_id"
	}
	cutoffEnd := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	rows, err := s.db.QueryContext(ctx,
		`SELECT did, `+ownerCol+`, cr_date, mod_date
		 FROM channel_did
		 WHERE `+ownerCol+` IS NOT NULL
		   AND (cr_date IS NULL OR cr_date < ?)
		 ORDER BY `+ownerCol+`, CAST(did AS INTEGER)`,
		cutoffEnd,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch dids")
	}
	defer rows.Close()

	var out []model.DidRecord
	for rows.Next() {
		var rec model.DidRecord
		if err := rows.Scan(&rec.Number, &rec.OwnerID, &rec.CreatedAt, &rec.ModifiedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan did")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch dids")
}

func (s *SQLiteStore) WriteClassifications(ctx context.Context, scope model.Scope, items []model.ClassifiedItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	productCol, sizeCol, ownerCol := classificationColumns(scope)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: write classifications: begin")
	}
	defer tx.Rollback()

	var total int64
	for _, it := range items {
		var res sql.Result
		if it.IsBlock() {
			res, err = tx.ExecContext(ctx,
				`UPDATE channel_did SET `+productCol+` = ?, `+sizeCol+` = ?
				 WHERE `+ownerCol+` = ? AND CAST(did AS INTEGER) BETWEEN CAST(? AS INTEGER) AND CAST(? AS INTEGER)`,
				it.E164Product, it.RangeSize, it.OwnerID, it.RangeStart, it.RangeEnd,
			)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE channel_did SET `+productCol+` = ?, `+sizeCol+` = ?
				 WHERE `+ownerCol+` = ? AND did = ?`,
				it.E164Product, it.RangeSize, it.OwnerID, it.DID,
			)
		}
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: write classification for %s", it.DID)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: write classifications: commit")
	}
	return total, nil
}

func (s *SQLiteStore) FetchProductCatalog(ctx context.Context) ([]model.ProductRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, display_name, prefixes, exact_length, priority, e164_product, block_size,
		        setup_cost, recurring_cost
		 FROM e164_products ORDER BY priority`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch product catalog")
	}
	defer rows.Close()

	var out []model.ProductRule
	for rows.Next() {
		var r model.ProductRule
		var prefixes, setup, recurring string
		if err := rows.Scan(&r.Code, &r.DisplayName, &prefixes, &r.ExactLength, &r.Priority,
			&r.E164Product, &r.BlockSize, &setup, &recurring); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product rule")
		}
		if prefixes != "" {
			r.Prefixes = strings.Split(prefixes, ",")
		}
		if r.SetupCost, err = decimal.NewFromString(setup); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse setup cost for %s", r.Code)
		}
		if r.RecurringCost, err = decimal.NewFromString(recurring); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse recurring cost for %s", r.Code)
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch product catalog")
}

func (s *SQLiteStore) FetchPriceOverrides(ctx context.Context) ([]model.PriceOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_code, owner_id, setup_cost, recurring_cost FROM e164_price_overrides`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch price overrides")
	}
	defer rows.Close()

	var out []model.PriceOverride
	for rows.Next() {
		var ov model.PriceOverride
		var setup, recurring string
		if err := rows.Scan(&ov.ProductCode, &ov.OwnerID, &setup, &recurring); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price override")
		}
		if ov.SetupCost, err = decimal.NewFromString(setup); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse override setup cost for %s", ov.ProductCode)
		}
		if ov.RecurringCost, err = decimal.NewFromString(recurring); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse override recurring cost for %s", ov.ProductCode)
		}
		out = append(out, ov)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch price overrides")
}

func (s *SQLiteStore) SeedCatalog(ctx context.Context, rules []model.ProductRule) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: seed catalog: begin")
	}
	defer tx.Rollback()

	var total int64
	for _, r := range rules {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO e164_products
			   (code, display_name, prefixes, exact_length, priority, e164_product, block_size, setup_cost, recurring_cost)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(code) DO UPDATE SET
			   display_name = excluded.display_name,
			   prefixes = excluded.prefixes,
			   exact_length = excluded.exact_length,
			   priority = excluded.priority,
			   e164_product = excluded.e164_product,
			   block_size = excluded.block_size,
			   setup_cost = excluded.setup_cost,
			   recurring_cost = excluded.recurring_cost`,
			r.Code, r.DisplayName, strings.Join(r.Prefixes, ","), r.ExactLength, r.Priority,
			r.E164Product, r.BlockSize, r.SetupCost.String(), r.RecurringCost.String(),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed product %s", r.Code)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: seed catalog: commit")
	}
	return total, nil
}

func (s *SQLiteStore) FetchCallRecords(ctx context.Context, year int, month time.Month) ([]model.CallRecord, error) {
	periodStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT ch.client_reseller_id, r.company, ch.client_client_id, c.company,
		        ch.flow, ch.billingplan, ch.disposion, ch.start, ch.extension_number,
		        CASE WHEN ch.did IS NULL OR ch.did = '' THEN 'N/A' ELSE ch.did END,
		        ch.partyid, ch.prefix, ch.duration,
		        ch.costres, ch.costcl,
		        CASE WHEN instr(ch.caller_info, ':') > 0
		             THEN substr(ch.caller_info, 1, instr(ch.caller_info, ':') - 1)
		             ELSE ch.caller_info END,
		        ch.callid, ch.hangupcause
		 FROM call_history ch
		 JOIN client r ON ch.client_reseller_id = r.id
		 JOIN client c ON ch.client_client_id = c.id
		 WHERE ch.disposion = 'ANSWERED'
		   AND ch.flow IN ('in', 'out')
		   AND ch.costadmin > 0 AND ch.costres > 0
		   AND ch.calltype != 'local'
		   AND ch.start >= ? AND ch.start < ?
		 ORDER BY r.company, c.company, ch.extension_number, ch.start`,
		periodStart, periodEnd,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch call records")
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
			return nil, eris.Wrap(err, "sqlite: scan call record")
		}
		if cr.ResellerCost, err = decimal.NewFromString(resCost); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse reseller cost")
		}
		if cr.ClientCost, err = decimal.NewFromString(clCost); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse client cost")
		}
		out = append(out, cr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch call records")
}

func (s *SQLiteStore) FetchDidCounts(ctx context.Context) (resellers, clients map[int64]int, err error) {
	resellers, err = s.countQuery(ctx,
		`SELECT r.id, COUNT(*)
		 FROM channel_did d
		 JOIN client r ON d.reseller_id = r.id
		 WHERE r.level = ?
		 GROUP BY r.id`, model.LevelReseller)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: reseller did counts")
	}

	clients, err = s.countQuery(ctx,
		`SELECT c.id, COUNT(*)
		 FROM channel_did d
		 JOIN client c ON d.client_id = c.id
		 GROUP BY c.id`)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: client did counts")
	}
	return resellers, clients, nil
}

func (s *SQLiteStore) FetchExtensionCounts(ctx context.Context) (resellers, clients map[int64]int, err error) {
	resellers, err = s.countQuery(ctx,
		`SELECT r.id, COUNT(DISTINCT e.extended_number)
		 FROM extension e
		 LEFT JOIN client c ON e.client_id = c.id
		 LEFT JOIN client pc ON c.parent_client_id = pc.id AND c.level = ?
		 JOIN client r ON (c.level = ? AND c.parent_client_id = r.id)
		               OR (c.level = ? AND pc.parent_client_id = r.id)
		 WHERE r.level = ?
		 GROUP BY r.id`, model.LevelUser, model.LevelClient, model.LevelUser, model.LevelReseller)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: reseller extension counts")
	}

	clients, err = s.countQuery(ctx,
		`SELECT COALESCE(pc.id, c.id), COUNT(DISTINCT e.extended_number)
		 FROM extension e
		 LEFT JOIN client c ON e.client_id = c.id
		 LEFT JOIN client pc ON c.parent_client_id = pc.id AND c.level = ?
		 WHERE c.level IN (?, ?)
		 GROUP BY COALESCE(pc.id, c.id)`, model.LevelUser, model.LevelClient, model.LevelUser)
	if err != nil {
		return nil, nil, eris.Wrap(err, "sqlite: client extension counts")
	}
	return resellers, clients, nil
}

func (s *SQLiteStore) countQuery(ctx context.Context, query string, args ...any) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) FetchClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_client_id, company, level FROM client ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch clients")
	}
	defer rows.Close()

	var out []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Company, &c.Level); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch clients")
}

func (s *SQLiteStore) FetchDidDetails(ctx context.Context) ([]model.DidDetail, error) {
	rows, err := s.db.QueryContext(ctx,
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
		 ORDER BY CAST(cd.did AS INTEGER)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: fetch did details")
	}
	defer rows.Close()

	var out []model.DidDetail
	for rows.Next() {
		var d model.DidDetail
		if err := rows.Scan(&d.Number, &d.ResellerID, &d.ClientID, &d.OwnerName, &d.ProductCode, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan did detail")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: fetch did details")
}
