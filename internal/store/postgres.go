// Package store provides material.Store implementations: Postgres on
// pgx/v5 for production and Memory for tests and DB-less runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hfujimori/materialmaster/internal/material"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same store
// code runs inside and outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS materials (
	material_id       TEXT PRIMARY KEY,
	material_name     TEXT NOT NULL DEFAULT '',
	manufacturer      TEXT NOT NULL DEFAULT '',
	supplier          TEXT NOT NULL DEFAULT '',
	application       TEXT NOT NULL DEFAULT '',
	unit_price        NUMERIC(10,2) NOT NULL DEFAULT 0,
	order_quantity    NUMERIC(10,3) NOT NULL DEFAULT 0,
	remarks           TEXT NOT NULL DEFAULT '',
	material_category TEXT NOT NULL DEFAULT '',
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS materials_is_active_idx ON materials (is_active);
CREATE INDEX IF NOT EXISTS materials_category_idx ON materials (material_category);
`

const materialColumns = `material_id, material_name, manufacturer, supplier, application,
	unit_price, order_quantity, remarks, material_category, is_active, created_at, updated_at`

// Postgres is the pgx-backed material store.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool // nil when transaction-bound
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// EnsureSchema creates the materials table and indexes if absent.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WithTx runs fn against a transaction-bound store. Nested calls reuse
// the existing transaction.
func (p *Postgres) WithTx(ctx context.Context, fn func(material.Store) error) error {
	if p.pool == nil {
		return fn(p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get returns the record for a business key, or material.ErrNotFound.
func (p *Postgres) Get(ctx context.Context, materialID string) (*material.Material, error) {
	row := p.db.QueryRow(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE material_id = $1`, materialID)
	m, err := scanMaterial(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, material.ErrNotFound
	}
	return m, err
}

// Insert creates a new record; created_at/updated_at come from the
// database clock.
func (p *Postgres) Insert(ctx context.Context, m *material.Material) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO materials (
			material_id, material_name, manufacturer, supplier, application,
			unit_price, order_quantity, remarks, material_category, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.MaterialID, m.MaterialName, m.Manufacturer, m.Supplier, m.Application,
		m.UnitPrice.String(), m.OrderQuantity.String(), m.Remarks, m.MaterialCategory, m.IsActive,
	)
	return err
}

// Update overwrites the mutable fields of an existing record.
func (p *Postgres) Update(ctx context.Context, m *material.Material) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE materials SET
			material_name = $2, manufacturer = $3, supplier = $4, application = $5,
			unit_price = $6, order_quantity = $7, remarks = $8, material_category = $9,
			is_active = $10, updated_at = now()
		WHERE material_id = $1`,
		m.MaterialID, m.MaterialName, m.Manufacturer, m.Supplier, m.Application,
		m.UnitPrice.String(), m.OrderQuantity.String(), m.Remarks, m.MaterialCategory, m.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return material.ErrNotFound
	}
	return nil
}

// Delete removes a record; deleting an absent key is not an error.
func (p *Postgres) Delete(ctx context.Context, materialID string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM materials WHERE material_id = $1`, materialID)
	return err
}

// List returns one page of materials per the options.
func (p *Postgres) List(ctx context.Context, opts material.ListOptions) (*material.ListResult, error) {
	where, args := buildWhere(opts)

	var total int64
	if err := p.db.QueryRow(ctx, `SELECT count(*) FROM materials`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count materials: %w", err)
	}

	sortKey := opts.SortKey
	if !validSortKey(sortKey) {
		sortKey = "material_id"
	}
	dir := "ASC"
	if opts.Descending {
		dir = "DESC"
	}

	perPage := opts.PerPage
	if !validPerPage(perPage) {
		perPage = material.DefaultPerPage
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}

	q := fmt.Sprintf(`SELECT `+materialColumns+` FROM materials%s ORDER BY %s %s, material_id ASC LIMIT %d OFFSET %d`,
		where, sortKey, dir, perPage, (page-1)*perPage)

	rows, err := p.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	result := &material.ListResult{
		Materials: []*material.Material{},
		Page:      page,
		PerPage:   perPage,
	}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		result.Materials = append(result.Materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.TotalCount = total
	result.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	return result, nil
}

// Stats returns dashboard counts.
func (p *Postgres) Stats(ctx context.Context) (*material.Stats, error) {
	s := &material.Stats{Categories: map[string]int64{}}

	err := p.db.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM materials`).
		Scan(&s.Total, &s.Active)
	if err != nil {
		return nil, fmt.Errorf("material stats: %w", err)
	}

	rows, err := p.db.Query(ctx,
		`SELECT material_category, count(*) FROM materials GROUP BY material_category`)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		s.Categories[cat] = n
	}
	return s, rows.Err()
}

// SetActive flips is_active for the given keys.
func (p *Postgres) SetActive(ctx context.Context, materialIDs []string, active bool) (int64, error) {
	if len(materialIDs) == 0 {
		return 0, nil
	}
	tag, err := p.db.Exec(ctx,
		`UPDATE materials SET is_active = $2, updated_at = now() WHERE material_id = ANY($1)`,
		materialIDs, active)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ActivateAll marks every record active.
func (p *Postgres) ActivateAll(ctx context.Context) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE materials SET is_active = TRUE, updated_at = now() WHERE NOT is_active`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// buildWhere assembles the WHERE clause for List from the options.
func buildWhere(opts material.ListOptions) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !opts.IncludeInactive {
		conds = append(conds, "is_active")
	}
	if opts.Category != "" {
		conds = append(conds, "material_category = "+arg(opts.Category))
	}
	if q := strings.TrimSpace(opts.Search); q != "" {
		ph := arg("%" + q + "%")
		conds = append(conds, fmt.Sprintf(
			"(material_id ILIKE %[1]s OR material_name ILIKE %[1]s OR manufacturer ILIKE %[1]s OR supplier ILIKE %[1]s)", ph))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func validSortKey(key string) bool {
	for _, k := range material.SortKeys {
		if k == key {
			return true
		}
	}
	return false
}

func validPerPage(n int) bool {
	for _, c := range material.PerPageChoices {
		if c == n {
			return true
		}
	}
	return false
}

// scanMaterial scans one row in materialColumns order.
func scanMaterial(row pgx.Row) (*material.Material, error) {
	var m material.Material
	var price, qty pgtype.Numeric

	err := row.Scan(
		&m.MaterialID, &m.MaterialName, &m.Manufacturer, &m.Supplier, &m.Application,
		&price, &qty, &m.Remarks, &m.MaterialCategory, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.UnitPrice = numericToDecimal(price)
	m.OrderQuantity = numericToDecimal(qty)
	return &m, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
