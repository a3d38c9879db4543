package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore persists insights in an `insights` table instead of the
// JSON log; retention pruning runs as a DELETE after each insert, which
// sidesteps the whole-file rewrite of the JSON store.
type PostgresStore struct {
	db           *sql.DB
	retentionCap int
}

var _ ports.InsightStore = (*PostgresStore)(nil)

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
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

// NewPostgresStore wires a sql.DB; retentionCap defaults to 1000.
func NewPostgresStore(db *sql.DB, retentionCap int) *PostgresStore {
	if retentionCap <= 0 {
		retentionCap = defaultRetentionCap
	}
	return &PostgresStore{db: db, retentionCap: retentionCap}
}

// Append inserts the insight and prunes rows beyond the retention cap,
// oldest first.
func (p *PostgresStore) Append(ctx context.Context, insight domain.Insight) error {
	query, args, err := psql.Insert("insights").
		Columns("id", "domain", "content", "quality_score", "created_at", "category", "model", "source_length").
		Values(insight.ID, insight.Domain, insight.Content, insight.QualityScore,
			insight.Timestamp, string(insight.Category), insight.Model, insight.SourceLength).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}

	prune := `DELETE FROM insights
	          WHERE id NOT IN (
	              SELECT id FROM insights ORDER BY created_at DESC LIMIT $1
	          )`
	if _, err := p.db.ExecContext(ctx, prune, p.retentionCap); err != nil {
		return fmt.Errorf("prune insights: %w", err)
	}

	return nil
}

// Recent returns up to limit insights, newest first.
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]domain.Insight, error) {
	builder := p.selectInsights().OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return p.query(ctx, builder)
}

// ByDomain returns all retained insights for one domain, newest first.
func (p *PostgresStore) ByDomain(ctx context.Context, domainName string) ([]domain.Insight, error) {
	query, args, err := p.selectInsights().
		Where("lower(domain) = lower(?)", domainName).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return p.scan(ctx, query, args)
}

func (p *PostgresStore) selectInsights() sq.SelectBuilder {
	return psql.Select("id", "domain", "content", "quality_score", "created_at", "category", "model", "source_length").
		From("insights")
}

func (p *PostgresStore) query(ctx context.Context, builder sq.SelectBuilder) ([]domain.Insight, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return p.scan(ctx, query, args)
}

func (p *PostgresStore) scan(ctx context.Context, query string, args []any) ([]domain.Insight, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []domain.Insight
	for rows.Next() {
		var ins domain.Insight
		var category string
		if err := rows.Scan(&ins.ID, &ins.Domain, &ins.Content, &ins.QualityScore,
			&ins.Timestamp, &category, &ins.Model, &ins.SourceLength); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		ins.Category = domain.Category(category)
		out = append(out, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// PostgresDomainSource reads the candidate pool from a `domains` table.
type PostgresDomainSource struct {
	db *sql.DB
}

var _ ports.DomainSource = (*PostgresDomainSource)(nil)

// NewPostgresDomainSource wires a sql.DB.
func NewPostgresDomainSource(db *sql.DB) *PostgresDomainSource {
	return &PostgresDomainSource{db: db}
}

// Domains returns the pool ordered by name for a stable rotation.
func (p *PostgresDomainSource) Domains(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("name").From("domains").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query domains: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
