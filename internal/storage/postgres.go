package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores each document as a jsonb row in a single app_state table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	_, err := pool.Exec(ctx, `
		create table if not exists app_state (
			key text primary key,
			doc jsonb not null,
			updated_at timestamptz not null default now()
		)
	`)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := p.pool.QueryRow(ctx, `select doc from app_state where key = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Postgres) Save(ctx context.Context, key string, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		insert into app_state (key, doc, updated_at)
		values ($1, $2, now())
		on conflict (key) do update set doc = excluded.doc, updated_at = now()
	`, key, data)
	return err
}
