package store

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres keeps records in the predictions table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires DATABASE_URL")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	sql, err := migrations.ReadFile("migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := p.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, rec prediction.Record) (prediction.Record, error) {
	rec.ID = uuid.NewString()
	_, err := p.pool.Exec(ctx,
		`INSERT INTO predictions (id, result, suggestion, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, string(rec.Result), rec.Suggestion, rec.Confidence, rec.CreatedAt)
	if err != nil {
		return prediction.Record{}, fmt.Errorf("insert prediction: %w", err)
	}
	return rec, nil
}

func (p *Postgres) List(ctx context.Context) ([]prediction.Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id::text, result, suggestion, confidence, created_at
		 FROM predictions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var records []prediction.Record
	for rows.Next() {
		var rec prediction.Record
		var result string
		if err := rows.Scan(&rec.ID, &result, &rec.Suggestion, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.Result = prediction.Result(result)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return records, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
