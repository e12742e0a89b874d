package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// handle is the subset of *pgxpool.Pool the ledger needs.
type handle interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `CREATE TABLE IF NOT EXISTS pdf_ledger (
	code          TEXT PRIMARY KEY,
	template_url  TEXT NOT NULL,
	template_hash TEXT NOT NULL,
	schema_hash   TEXT NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL,
	pages         INTEGER NOT NULL,
	file_key      TEXT NOT NULL DEFAULT ''
)`

const insertEntry = `INSERT INTO pdf_ledger
	(code, template_url, template_hash, schema_hash, generated_at, pages, file_key)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (code) DO UPDATE SET file_key = EXCLUDED.file_key`

const selectEntry = `SELECT code, template_url, template_hash, schema_hash, generated_at, pages, file_key
	FROM pdf_ledger WHERE code = $1`

type PostgresLedger struct {
	db handle
}

// NewPostgresLedger opens a pool for dsn, checks the connection and creates
// the ledger table if needed. Close the returned pool on shutdown.
func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, *pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 3 * time.Minute

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(initCtx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pgx pool: %w", err)
	}
	if err := pool.Ping(initCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	l := &PostgresLedger{db: pool}
	if err := l.migrate(initCtx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return l, pool, nil
}

func (l *PostgresLedger) migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ledger table: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Record(ctx context.Context, e Entry) error {
	if e.Code == "" {
		return errors.New("ledger: empty verification code")
	}
	_, err := l.db.Exec(ctx, insertEntry,
		e.Code, e.TemplateURL, e.TemplateHash, e.SchemaHash, e.GeneratedAt.UTC(), e.Pages, e.FileKey)
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Code, err)
	}
	return nil
}

func (l *PostgresLedger) Lookup(ctx context.Context, code string) (Entry, error) {
	var e Entry
	err := l.db.QueryRow(ctx, selectEntry, code).Scan(
		&e.Code, &e.TemplateURL, &e.TemplateHash, &e.SchemaHash, &e.GeneratedAt, &e.Pages, &e.FileKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("lookup %s: %w", code, err)
	}
	return e, nil
}
