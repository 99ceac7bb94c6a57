package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"field-mapper/internal/common"
)

// Dialect selects placeholder syntax for a SQL backend.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// String returns the database/sql driver name of the dialect.
func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgres:
		return "postgres"
	default:
		return common.UnknownStr
	}
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS learned_mappings (
		manufacturer TEXT NOT NULL,
		template TEXT NOT NULL,
		source_field TEXT NOT NULL,
		target_field TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		usage_count BIGINT NOT NULL DEFAULT 0,
		success_count BIGINT NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (manufacturer, template, source_field)
	)`,
	`CREATE TABLE IF NOT EXISTS mapping_audit (
		run_id TEXT NOT NULL,
		manufacturer TEXT NOT NULL,
		template TEXT NOT NULL,
		target_field TEXT NOT NULL,
		source_field TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL,
		status TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		success INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS mapping_audit_scope ON mapping_audit (manufacturer, template, created_at)`,
}

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to the named driver ("sqlite" or "postgres") and migrates
// the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var dialect Dialect

	switch driver {
	case "sqlite", "sqlite3":
		dialect = DialectSQLite
	case "postgres", "postgresql":
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(dialect.String(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// A single connection serialises writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLStore wraps an open database and migrates the schema.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, now: time.Now}

	if err := s.migrate(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)

	for _, r := range query {
		if r == '?' {
			n++

			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

const learnedColumns = `manufacturer, template, source_field, target_field, confidence, usage_count, success_count, created_at, updated_at`

func (s *SQLStore) Lookup(ctx context.Context, manufacturer, template, target string) (*LearnedMapping, error) {
	query := s.rebind(`SELECT ` + learnedColumns + ` FROM learned_mappings
		WHERE manufacturer = ? AND template = ? AND target_field = ?
		ORDER BY confidence DESC, usage_count DESC, source_field ASC
		LIMIT 1`)

	m, err := scanLearned(s.db.QueryRowContext(ctx, query, manufacturer, template, target))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to look up learned mapping: %w", err)
	}

	return &m, nil
}

func (s *SQLStore) Save(ctx context.Context, m LearnedMapping) error {
	now := s.now().UTC().Format(timeLayout)
	query := s.rebind(`INSERT INTO learned_mappings (` + learnedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (manufacturer, template, source_field) DO UPDATE SET
			target_field = excluded.target_field,
			confidence = excluded.confidence,
			usage_count = learned_mappings.usage_count + excluded.usage_count,
			success_count = learned_mappings.success_count + excluded.success_count,
			updated_at = excluded.updated_at`)

	_, err := s.db.ExecContext(ctx, query,
		m.Manufacturer, m.Template, m.SourceField, m.TargetField, m.Confidence,
		m.UsageCount, m.SuccessCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save learned mapping: %w", err)
	}

	return nil
}

func (s *SQLStore) RecordUsage(ctx context.Context, manufacturer, template, sourceField string, success bool) error {
	query := s.rebind(`UPDATE learned_mappings
		SET usage_count = usage_count + 1, success_count = success_count + ?, updated_at = ?
		WHERE manufacturer = ? AND template = ? AND source_field = ?`)

	_, err := s.db.ExecContext(ctx, query,
		boolInt(success), s.now().UTC().Format(timeLayout), manufacturer, template, sourceField,
	)
	if err != nil {
		return fmt.Errorf("failed to record learned mapping usage: %w", err)
	}

	return nil
}

func (s *SQLStore) ListLearned(ctx context.Context, manufacturer, template string) ([]LearnedMapping, error) {
	query := s.rebind(`SELECT ` + learnedColumns + ` FROM learned_mappings
		WHERE manufacturer = ? AND template = ?
		ORDER BY confidence DESC, usage_count DESC, source_field ASC`)

	rows, err := s.db.QueryContext(ctx, query, manufacturer, template)
	if err != nil {
		return nil, fmt.Errorf("failed to list learned mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LearnedMapping

	for rows.Next() {
		m, err := scanLearned(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan learned mapping: %w", err)
		}

		out = append(out, m)
	}

	return out, rows.Err()
}

// Append writes all entries in one transaction.
func (s *SQLStore) Append(ctx context.Context, entries ...AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}

	query := s.rebind(`INSERT INTO mapping_audit
		(run_id, manufacturer, template, target_field, source_field, strategy, status, confidence, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	now := s.now().UTC()

	for _, e := range entries {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = now
		}

		_, err = tx.ExecContext(ctx, query,
			e.RunID, e.Manufacturer, e.Template, e.TargetField, e.SourceField,
			e.Strategy, e.Status, e.Confidence, boolInt(e.Success), ts.UTC().Format(timeLayout),
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to append audit entry for %q: %w", e.TargetField, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit entries: %w", err)
	}

	return nil
}

func (s *SQLStore) List(ctx context.Context, manufacturer, template string, limit int) ([]AuditEntry, error) {
	query := `SELECT run_id, manufacturer, template, target_field, source_field, strategy, status, confidence, success, created_at
		FROM mapping_audit
		WHERE manufacturer = ? AND template = ?
		ORDER BY created_at DESC, target_field ASC`
	args := []any{manufacturer, template}

	if limit > 0 {
		query += ` LIMIT ?`

		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AuditEntry

	for rows.Next() {
		var (
			e       AuditEntry
			success int64
			ts      string
		)

		err := rows.Scan(&e.RunID, &e.Manufacturer, &e.Template, &e.TargetField, &e.SourceField,
			&e.Strategy, &e.Status, &e.Confidence, &success, &ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		e.Success = success != 0
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		out = append(out, e)
	}

	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLearned(row rowScanner) (LearnedMapping, error) {
	var (
		m                LearnedMapping
		created, updated string
	)

	err := row.Scan(&m.Manufacturer, &m.Template, &m.SourceField, &m.TargetField, &m.Confidence,
		&m.UsageCount, &m.SuccessCount, &created, &updated)
	if err != nil {
		return LearnedMapping{}, err
	}

	m.CreatedAt, _ = time.Parse(timeLayout, created)
	m.UpdatedAt, _ = time.Parse(timeLayout, updated)

	return m, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
