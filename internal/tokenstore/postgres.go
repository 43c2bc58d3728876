package tokenstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

// querier is the subset of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps the token in the client_storage table.
type Postgres struct {
	db  querier
	key string
}

func NewPostgres(db querier, key string) *Postgres {
	return &Postgres{db: db, key: key}
}

func (p *Postgres) Save(ctx context.Context, token string) error {
	const query = `
        INSERT INTO client_storage (storage_key, value, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (storage_key) DO UPDATE
        SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := p.db.Exec(ctx, query, p.key, token); err != nil {
		return apperrors.NewStorageError("save", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) (string, bool, error) {
	const query = `SELECT value FROM client_storage WHERE storage_key = $1`
	var token string
	err := p.db.QueryRow(ctx, query, p.key).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStorageError("load", err)
	}
	return token, true, nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	const query = `DELETE FROM client_storage WHERE storage_key = $1`
	if _, err := p.db.Exec(ctx, query, p.key); err != nil {
		return apperrors.NewStorageError("clear", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	return p.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}
