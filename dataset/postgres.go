package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/rushteam/artrec/core"
)

// DefaultInteractionsQuery 期望返回 (user_id, article_id, engagement) 三列，engagement 可为 NULL。
const DefaultInteractionsQuery = `SELECT user_id, article_id, session_size FROM clicks`

// PostgresInteractions 从 Postgres 读取交互记录，替代点击日志 CSV。
type PostgresInteractions struct {
	db    *sql.DB
	query string
}

// NewPostgresInteractions 打开连接并做连通性检查。query 为空时使用 DefaultInteractionsQuery。
func NewPostgresInteractions(ctx context.Context, dsn, query string) (*PostgresInteractions, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeUnavailable, "dataset: ping database", err)
	}
	return NewPostgresInteractionsWithDB(db, query), nil
}

// NewPostgresInteractionsWithDB 使用已有连接池。
func NewPostgresInteractionsWithDB(db *sql.DB, query string) *PostgresInteractions {
	if query == "" {
		query = DefaultInteractionsQuery
	}
	return &PostgresInteractions{db: db, query: query}
}

func (p *PostgresInteractions) Interactions(ctx context.Context) ([]core.Interaction, error) {
	rows, err := p.db.QueryContext(ctx, p.query)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []core.Interaction
	for rows.Next() {
		var (
			in         core.Interaction
			engagement sql.NullFloat64
		)
		if err := rows.Scan(&in.UserID, &in.ArticleID, &engagement); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Engagement = core.MissingEngagement
		if engagement.Valid {
			in.Engagement = engagement.Float64
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

func (p *PostgresInteractions) Close() error {
	return p.db.Close()
}
