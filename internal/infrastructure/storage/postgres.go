// Package storage persists extraction results into Postgres. It is
// the only component holding a database connection.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
	"github.com/AnabVangun/publicLegiCrawler/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository implements the repository port on a sql.DB.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Open connects to Postgres using the lib/pq driver and verifies the
// connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// InitSchema creates the storage tables. Safe to run repeatedly.
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS texts (
			cid TEXT PRIMARY KEY,
			publication_date TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			id BIGSERIAL PRIMARY KEY,
			cid TEXT NOT NULL REFERENCES texts (cid),
			corps TEXT NOT NULL DEFAULT '',
			grade TEXT NOT NULL,
			full_name TEXT NOT NULL,
			year INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS failed_texts (
			cid TEXT PRIMARY KEY
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// ExistsBatch returns a map holding the ids already present in the
// texts table. Failed texts are deliberately excluded: they are
// retried on a later run.
func (r *PostgresRepository) ExistsBatch(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT cid FROM texts WHERE cid = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.StringArray(ids))
	if err != nil {
		return nil, fmt.Errorf("query texts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cid: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// SaveBatch writes one persist batch in a single transaction. On any
// error the transaction rolls back: no partial commit.
func (r *PostgresRepository) SaveBatch(ctx context.Context, batch domain.PersistBatch) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(batch.Failed) > 0 {
		// ON CONFLICT keeps restarts idempotent: a text that failed on
		// a previous run is fetched again and may fail again.
		builder := psql.Insert("failed_texts").Columns("cid").
			Suffix("ON CONFLICT (cid) DO NOTHING")
		for _, id := range batch.Failed {
			builder = builder.Values(id)
		}
		if err = execBuilder(ctx, tx, builder); err != nil {
			return fmt.Errorf("insert failed texts: %w", err)
		}
	}

	if len(batch.Accepted) > 0 {
		builder := psql.Insert("texts").Columns("cid", "publication_date")
		for _, accepted := range batch.Accepted {
			builder = builder.Values(accepted.ID, accepted.PublishedAt)
		}
		if err = execBuilder(ctx, tx, builder); err != nil {
			return fmt.Errorf("insert texts: %w", err)
		}
	}

	if len(batch.Records) > 0 {
		builder := psql.Insert("records").
			Columns("cid", "corps", "grade", "full_name", "year")
		for _, rec := range batch.Records {
			builder = builder.Values(rec.TextID, rec.Corps, rec.Grade, rec.FullName, rec.Year)
		}
		if err = execBuilder(ctx, tx, builder); err != nil {
			return fmt.Errorf("insert records: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func execBuilder(ctx context.Context, tx *sql.Tx, builder sq.InsertBuilder) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}
