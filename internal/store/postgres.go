package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/token"
)

// Expected schema:
//
//	CREATE TABLE url_tokens (
//	    token      text PRIMARY KEY,
//	    created_at timestamptz NOT NULL,
//	    used       boolean NOT NULL DEFAULT false,
//	    used_at    timestamptz
//	);
//	CREATE INDEX url_tokens_used_created_at_idx ON url_tokens (used, created_at);
//
//	CREATE TABLE short_links (
//	    token      text PRIMARY KEY,
//	    url        text NOT NULL,
//	    created_at timestamptz NOT NULL,
//	    expires_at timestamptz NOT NULL
//	);
//	CREATE INDEX short_links_url_expires_at_idx ON short_links (url, expires_at);

const uniqueViolation = "23505"

// PostgresPool is the PostgreSQL token ledger.
type PostgresPool struct {
	pool *pgxpool.Pool
}

// NewPostgresPool creates the PostgreSQL-backed token pool repository.
func NewPostgresPool(pool *pgxpool.Pool) *PostgresPool {
	return &PostgresPool{pool: pool}
}

func (p *PostgresPool) Insert(ctx context.Context, t token.PooledToken) error {
	query := `
		INSERT INTO url_tokens (token, created_at, used, used_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.pool.Exec(ctx, query, t.Token, t.CreatedAt, t.Used, t.UsedAt)
	if isUniqueViolation(err) {
		return token.ErrDuplicateToken
	}

	return err
}

func (p *PostgresPool) CountUnused(ctx context.Context) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM url_tokens WHERE NOT used`).Scan(&count)

	return count, err
}

func (p *PostgresPool) Exists(ctx context.Context, tok string) (bool, error) {
	var exists bool

	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM url_tokens WHERE token = $1)`, tok,
	).Scan(&exists)

	return exists, err
}

func (p *PostgresPool) MarkUsed(ctx context.Context, tok string, at time.Time) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE url_tokens SET used = true, used_at = $2 WHERE token = $1 AND NOT used`,
		tok, at,
	)

	return err
}

// PostgresLinks is the PostgreSQL short-link store.
type PostgresLinks struct {
	pool *pgxpool.Pool
}

// NewPostgresLinks creates the PostgreSQL-backed short-link repository.
func NewPostgresLinks(pool *pgxpool.Pool) *PostgresLinks {
	return &PostgresLinks{pool: pool}
}

func (l *PostgresLinks) FindByToken(ctx context.Context, tok string) (*shortener.ShortLink, error) {
	query := `
		SELECT token, url, created_at, expires_at
		FROM short_links
		WHERE token = $1
	`

	var link shortener.ShortLink

	err := l.pool.QueryRow(ctx, query, tok).Scan(
		&link.Token,
		&link.URL,
		&link.CreatedAt,
		&link.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (l *PostgresLinks) FindActiveByURL(ctx context.Context, url string, now time.Time) (*shortener.ShortLink, error) {
	query := `
		SELECT token, url, created_at, expires_at
		FROM short_links
		WHERE url = $1 AND expires_at > $2
		LIMIT 1
	`

	var link shortener.ShortLink

	err := l.pool.QueryRow(ctx, query, url, now).Scan(
		&link.Token,
		&link.URL,
		&link.CreatedAt,
		&link.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shortener.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (l *PostgresLinks) Upsert(ctx context.Context, link *shortener.ShortLink) error {
	query := `
		INSERT INTO short_links (token, url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
		SET url = EXCLUDED.url, expires_at = EXCLUDED.expires_at
	`

	_, err := l.pool.Exec(ctx, query, link.Token, link.URL, link.CreatedAt, link.ExpiresAt)

	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ token.PoolRepository = (*PostgresPool)(nil)
	_ shortener.Repository = (*PostgresLinks)(nil)
)
