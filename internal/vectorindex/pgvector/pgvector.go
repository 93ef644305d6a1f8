// Package pgvector stores vectors in PostgreSQL tables using the pgvector
// extension, one table per collection with the payload kept as jsonb.
package pgvector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/spigell/skillbridge-matcher/internal/logger"
	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

// DB is the subset of *pgxpool.Pool used by the backend.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config describes the Postgres connection.
type Config struct {
	DSN         string `mapstructure:"-"`
	TablePrefix string `mapstructure:"table-prefix"`
	MaxConns    int32  `mapstructure:"max-conns"`
}

// Backend implements vectorindex.Backend on top of pgx.
type Backend struct {
	db     DB
	close  func()
	prefix string
	logger *zap.Logger
}

var _ vectorindex.Backend = (*Backend)(nil)

// Connect opens a pool and checks connectivity.
func Connect(ctx context.Context, cfg Config, l *zap.Logger) (*Backend, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: open pgx pool: %v", vectorindex.ErrStorageUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", vectorindex.ErrStorageUnavailable, err)
	}
	b := New(pool, cfg.TablePrefix, l)
	b.close = pool.Close
	return b, nil
}

// New wraps an existing database handle. The caller owns its lifecycle.
func New(db DB, prefix string, l *zap.Logger) *Backend {
	if prefix == "" {
		prefix = "skillbridge_"
	}
	return &Backend{db: db, prefix: prefix, logger: logger.OrNop(l)}
}

func (b *Backend) Name() string { return "pgvector" }

func (b *Backend) table(c vectorindex.Collection) string {
	return pgx.Identifier{b.prefix + string(c)}.Sanitize()
}

func (b *Backend) Recreate(ctx context.Context, c vectorindex.Collection, dimension int) error {
	table := b.table(c)
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table),
		fmt.Sprintf(`CREATE TABLE %s (
	id UUID PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	embedding vector(%d) NOT NULL,
	payload JSONB NOT NULL
)`, table, dimension),
	}
	for _, stmt := range statements {
		if _, err := b.db.Exec(ctx, stmt); err != nil {
			return mapError(err, table)
		}
	}
	logger.WithFields(b.logger, logger.CollectionFields(b.Name(), table)...).Info("table recreated", zap.Int("dimension", dimension))
	return nil
}

func (b *Backend) Upsert(ctx context.Context, c vectorindex.Collection, record vectorindex.Record) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", vectorindex.ErrInvalidPayload, err)
	}
	vec := vectorLiteral(record.Vector)
	table := b.table(c)
	_, err = b.db.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, embedding, payload)
VALUES ($1, $2::vector, $3::jsonb)
ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, table),
		record.ID, vec, string(payload))
	if err != nil {
		return mapError(err, table)
	}
	return nil
}

func (b *Backend) Search(ctx context.Context, c vectorindex.Collection, query []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	vec := vectorLiteral(query)
	table := b.table(c)
	sql, args := buildSearch(table, filter, limit)
	rows, err := b.db.Query(ctx, sql, append([]any{vec}, args...)...)
	if err != nil {
		return nil, mapError(err, table)
	}
	return collect(rows, true, table)
}

func (b *Backend) Scan(ctx context.Context, c vectorindex.Collection, filter vectorindex.Filter, limit int) ([]vectorindex.Hit, error) {
	table := b.table(c)
	sql, args := buildScan(table, filter, limit)
	rows, err := b.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err, table)
	}
	return collect(rows, false, table)
}

func (b *Backend) Delete(ctx context.Context, c vectorindex.Collection, vectorID string) error {
	table := b.table(c)
	if _, err := b.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), vectorID); err != nil {
		return mapError(err, table)
	}
	return nil
}

func (b *Backend) Info(ctx context.Context, c vectorindex.Collection) (vectorindex.Info, error) {
	table := b.table(c)
	var count int64
	if err := b.db.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, table)).Scan(&count); err != nil {
		return vectorindex.Info{}, mapError(err, table)
	}
	var dimension int
	err := b.db.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass($1) AND attname = 'embedding'`,
		table).Scan(&dimension)
	if err != nil {
		return vectorindex.Info{}, mapError(err, table)
	}
	return vectorindex.Info{
		Name:         b.prefix + string(c),
		Status:       "green",
		PointsCount:  uint64(count),
		VectorsCount: uint64(count),
		Dimension:    dimension,
	}, nil
}

func (b *Backend) Close() error {
	if b.close != nil {
		b.close()
	}
	return nil
}

func collect(rows pgx.Rows, withScore bool, table string) ([]vectorindex.Hit, error) {
	defer rows.Close()
	hits := []vectorindex.Hit{}
	for rows.Next() {
		var (
			hit vectorindex.Hit
			raw []byte
		)
		dest := []any{&hit.VectorID, &raw}
		if withScore {
			dest = append(dest, &hit.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, mapError(err, table)
		}
		if err := json.Unmarshal(raw, &hit.Payload); err != nil {
			return nil, fmt.Errorf("%w: decode payload: %v", vectorindex.ErrInvalidPayload, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, table)
	}
	return hits, nil
}

// vectorLiteral renders v in the pgvector text format so no custom type
// registration is needed on the connection.
func vectorLiteral(v []float32) string {
	return pgv.NewVector(v).String()
}

const undefinedTable = "42P01"

func mapError(err error, table string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == undefinedTable {
			return fmt.Errorf("%w: %s", vectorindex.ErrCollectionNotInitialized, table)
		}
		return fmt.Errorf("postgres %s: %w", table, err)
	}
	return fmt.Errorf("%w: %s: %v", vectorindex.ErrStorageUnavailable, table, err)
}
