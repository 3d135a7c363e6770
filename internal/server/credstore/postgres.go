package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mizphses/kips/internal/common"
	"github.com/mizphses/kips/internal/server/credstore/migrations"
)

// PostgresStore implements Store on a single credentials table keyed by
// (mapping, key).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pgx connection and runs pending goose migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	return goose.UpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Get(ctx context.Context, m Mapping, key string) (string, error) {
	query := `SELECT v FROM credentials WHERE mapping = $1 AND k = $2`

	var value string
	err := s.db.QueryRowContext(ctx, query, string(m), key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, m Mapping, key, value string) error {
	return s.exec(ctx, s.db, PutOp(m, key, value))
}

func (s *PostgresStore) Delete(ctx context.Context, m Mapping, key string) error {
	return s.exec(ctx, s.db, DeleteOp(m, key))
}

// Apply executes all ops in one transaction.
func (s *PostgresStore) Apply(ctx context.Context, ops ...Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin error: %w", err)
	}

	for _, op := range ops {
		if err := s.exec(ctx, tx, op); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) exec(ctx context.Context, db execer, op Op) error {
	if op.Remove {
		query := `DELETE FROM credentials WHERE mapping = $1 AND k = $2`
		if _, err := db.ExecContext(ctx, query, string(op.Mapping), op.Key); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	}

	query :=
		`INSERT INTO credentials (mapping, k, v)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (mapping, k) DO UPDATE SET v = EXCLUDED.v
		 `
	if _, err := db.ExecContext(ctx, query, string(op.Mapping), op.Key, op.Value); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
