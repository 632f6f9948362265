// Package warehouse loads pipeline output tables into PostgreSQL. Each table
// is created from its in-memory schema if absent, truncated, and bulk-loaded
// with COPY, so a rerun against the same database converges to the same
// state.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"hospitalmart/internal/pipeline"
	"hospitalmart/internal/table"
)

// Loader owns a connection pool to the warehouse database.
type Loader struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies connectivity.
func Connect(ctx context.Context, connStr string, maxConns int32) (*Loader, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Loader{pool: pool}, nil
}

// Close releases the pool.
func (l *Loader) Close() {
	l.pool.Close()
}

// columnDDL maps a field type to its PostgreSQL column type.
func columnDDL(ft table.FieldType) string {
	switch ft {
	case table.FieldNumeric:
		return "double precision"
	case table.FieldDate:
		return "date"
	case table.FieldDateTime:
		return "timestamptz"
	default:
		return "text"
	}
}

// createDDL renders the CREATE TABLE statement for one table.
func createDDL(t *table.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", pgx.Identifier{t.Name}.Sanitize())
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", pgx.Identifier{col.Name}.Sanitize(), columnDDL(col.Type))
	}
	b.WriteString(")")
	return b.String()
}

// pgValue converts one cell to its pgtype representation.
func pgValue(v table.Value, ft table.FieldType) any {
	if !v.Valid {
		switch ft {
		case table.FieldNumeric:
			return pgtype.Float8{}
		case table.FieldDate:
			return pgtype.Date{}
		case table.FieldDateTime:
			return pgtype.Timestamptz{}
		default:
			return pgtype.Text{}
		}
	}
	switch ft {
	case table.FieldNumeric:
		return pgtype.Float8{Float64: v.Num, Valid: true}
	case table.FieldDate:
		return pgtype.Date{Time: v.Time, Valid: true}
	case table.FieldDateTime:
		return pgtype.Timestamptz{Time: v.Time, Valid: true}
	default:
		return pgtype.Text{String: v.Text, Valid: true}
	}
}

// LoadTable replaces the database table's contents with t's rows.
func (l *Loader) LoadTable(ctx context.Context, t *table.Table) (int64, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createDDL(t)); err != nil {
		return 0, fmt.Errorf("create %s: %w", t.Name, err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+pgx.Identifier{t.Name}.Sanitize()); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", t.Name, err)
	}

	rows := make([][]any, 0, t.NumRows())
	for _, row := range t.Rows {
		rec := make([]any, len(row))
		for i, v := range row {
			rec[i] = pgValue(v, t.Columns[i].Type)
		}
		rows = append(rows, rec)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{t.Name},
		t.ColumnNames(),
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", t.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", t.Name, err)
	}
	return copied, nil
}

// LoadResult loads every table from a pipeline result, dimension tables
// first so a reader mid-load sees dimensions before facts referencing them.
func (l *Loader) LoadResult(ctx context.Context, res *pipeline.Result) error {
	start := time.Now()

	names := res.TableNames()
	ordered := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, "dim_") {
			ordered = append(ordered, n)
		}
	}
	for _, n := range names {
		if !strings.HasPrefix(n, "dim_") {
			ordered = append(ordered, n)
		}
	}

	var total int64
	for _, name := range ordered {
		copied, err := l.LoadTable(ctx, res.Tables[name])
		if err != nil {
			return err
		}
		slog.Info("loaded table", "table", name, "rows", copied)
		total += copied
	}

	slog.Info("warehouse load complete",
		"tables", len(ordered), "rows", total,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
