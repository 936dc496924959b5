package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps command ids in the command_ids table.
type PostgresStore struct{ db *sql.DB }

// OpenPostgres connects with the pgx driver, checks health and applies the
// embedded migrations.
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Migrate applies all embedded migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, "migrations")
}

func (s *PostgresStore) Save(ctx context.Context, scope string, ids map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM command_ids WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("clear scope %s: %w", scope, err)
	}
	for name, id := range ids {
		_, err := tx.ExecContext(ctx, `
INSERT INTO command_ids (scope, name, command_id, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (scope, name) DO UPDATE SET
  command_id = EXCLUDED.command_id,
  updated_at = EXCLUDED.updated_at
`, scope, name, id)
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", scope, name, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Lookup(ctx context.Context, scope, name string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
SELECT command_id
  FROM command_ids
 WHERE scope = $1 AND name = $2
`, scope, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *PostgresStore) List(ctx context.Context, scope string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, command_id
  FROM command_ids
 WHERE scope = $1
`, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, id string
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
