package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/types"
)

const DefaultTable = "wsb_ticker_raw"

var rowColumns = []string{"created_on", "ticker", "mention_count", "sentiment", "post_date"}

// conn is the subset of *pgxpool.Pool the sink uses.
type conn interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type PostgresSink struct {
	db    conn
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// Open connects to cfg.URL and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sink := newPostgresSink(pool, cfg.Table)
	sink.pool = pool
	return sink, nil
}

func newPostgresSink(db conn, table string) *PostgresSink {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSink{db: db, table: pgx.Identifier(strings.Split(table, "."))}
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

func (s *PostgresSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the results table when it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	table := s.table.Sanitize()
	index := pgx.Identifier{s.table[len(s.table)-1] + "_ticker_created_on_idx"}.Sanitize()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            BIGSERIAL PRIMARY KEY,
	created_on    TIMESTAMPTZ NOT NULL,
	ticker        TEXT NOT NULL,
	mention_count INTEGER NOT NULL,
	sentiment     DOUBLE PRECISION NOT NULL,
	post_date     TIMESTAMPTZ
)`, table)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if _, err := s.db.Exec(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (ticker, created_on)", index, table)); err != nil {
		return fmt.Errorf("failed to create index on %s: %w", table, err)
	}
	return nil
}

func (s *PostgresSink) Deliver(ctx context.Context, report *types.RunReport) (int, error) {
	return deliver(ctx, s, report)
}

// Save appends rows with a single COPY.
func (s *PostgresSink) Save(ctx context.Context, rows []Row) error {
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{r.RunDate, r.Ticker, r.MentionCount, r.Sentiment, r.PostDate}, nil
	})

	n, err := s.db.CopyFrom(ctx, s.table, rowColumns, src)
	if err != nil {
		return fmt.Errorf("failed to copy rows into %s: %w", s.table.Sanitize(), err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copied %d of %d rows into %s", n, len(rows), s.table.Sanitize())
	}
	return nil
}
