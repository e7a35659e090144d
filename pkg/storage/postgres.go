package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/nirmaltodwal7/facegate/pkg/config"
	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// PostgresStore keeps templates in a pgvector column so the dashboard
// backend can share one database across service replicas.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to postgres and verifies the connection.
func NewPostgresStore(cfg config.PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the template table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS face_templates (
			id         UUID PRIMARY KEY,
			user_id    TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS face_templates_user_idx ON face_templates (user_id);
	`, face.EmbeddingDim))
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping reports database health.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Get implements TemplateStore.
func (s *PostgresStore) Get(ctx context.Context, userID string) ([]Template, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT embedding, created_at FROM face_templates WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var vec pgvector.Vector
		tpl := Template{UserID: userID}
		if err := rows.Scan(&vec, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		tpl.Vector, err = face.FromSlice(vec.Slice())
		if err != nil {
			return nil, fmt.Errorf("stored template for %s: %w", userID, err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	if len(templates) == 0 {
		return nil, ErrUserNotFound
	}
	return templates, nil
}

// Append implements TemplateStore.
func (s *PostgresStore) Append(ctx context.Context, tpl Template) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO face_templates (id, user_id, embedding, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), tpl.UserID, pgvector.NewVector(tpl.Vector[:]), tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return nil
}

// Replace implements TemplateStore. The delete and insert run in one
// transaction so a failed re-enrollment never leaves the user with no
// templates.
func (s *PostgresStore) Replace(ctx context.Context, tpl Template) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM face_templates WHERE user_id = $1`, tpl.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO face_templates (id, user_id, embedding, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), tpl.UserID, pgvector.NewVector(tpl.Vector[:]), tpl.CreatedAt); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	return nil
}

// Delete implements TemplateStore.
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM face_templates WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
