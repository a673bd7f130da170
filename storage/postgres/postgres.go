// Package postgres backs the store contract with a PostgreSQL table, for
// deployments that want the records outside the process.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/internal/utils"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage"
)

const createSchema = `
CREATE TABLE IF NOT EXISTS statadmin_kv (
	bucket    text NOT NULL,
	sub       text NOT NULL,
	key       text NOT NULL,
	segments  jsonb NOT NULL,
	value     jsonb,
	tombstone boolean NOT NULL DEFAULT false,
	PRIMARY KEY (bucket, sub, key)
)`

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, databaseDsn string) (*PostgresStorage, error) {
	db, err := pgxpool.New(ctx, databaseDsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	store := &PostgresStorage{db: db}
	err = utils.WithRetry(ctx, func() error {
		_, err := db.Exec(ctx, createSchema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

func (store *PostgresStorage) Get(ctx context.Context, p storage.Prefix, key []string) ([]byte, error) {
	var (
		value     []byte
		tombstone bool
	)
	err := utils.WithRetry(ctx, func() error {
		row := store.db.QueryRow(ctx,
			`SELECT value, tombstone FROM statadmin_kv WHERE bucket=$1 AND sub=$2 AND key=$3`,
			p.Bucket, p.Sub, model.JoinName(key))
		return row.Scan(&value, &tombstone)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", p, model.JoinName(key), err)
	}
	if tombstone {
		return nil, errs.ErrTombstoned
	}
	return value, nil
}

func (store *PostgresStorage) Put(ctx context.Context, p storage.Prefix, key []string, value []byte) error {
	segments, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	err = utils.WithRetry(ctx, func() error {
		_, err := store.db.Exec(ctx,
			`INSERT INTO statadmin_kv (bucket, sub, key, segments, value, tombstone)
			 VALUES ($1, $2, $3, $4, $5, false)
			 ON CONFLICT (bucket, sub, key)
			 DO UPDATE SET segments = EXCLUDED.segments, value = EXCLUDED.value, tombstone = false`,
			p.Bucket, p.Sub, model.JoinName(key), segments, value)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", p, model.JoinName(key), err)
	}
	return nil
}

func (store *PostgresStorage) Delete(ctx context.Context, p storage.Prefix, key []string) error {
	segments, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	err = utils.WithRetry(ctx, func() error {
		_, err := store.db.Exec(ctx,
			`INSERT INTO statadmin_kv (bucket, sub, key, segments, value, tombstone)
			 VALUES ($1, $2, $3, $4, NULL, true)
			 ON CONFLICT (bucket, sub, key)
			 DO UPDATE SET value = NULL, tombstone = true`,
			p.Bucket, p.Sub, model.JoinName(key), segments)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", p, model.JoinName(key), err)
	}
	return nil
}

func (store *PostgresStorage) Fold(ctx context.Context, p storage.Prefix, pattern []string, fn storage.FoldFunc) error {
	var rows []foldRow
	err := utils.WithRetry(ctx, func() error {
		fetched, err := store.fetchPrefix(ctx, p)
		if err != nil {
			return err
		}
		rows = fetched
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to fold %s: %w", p, err)
	}

	for _, r := range rows {
		if !model.MatchName(pattern, r.key) {
			continue
		}
		if err := fn(r.key, r.value); err != nil {
			return err
		}
	}
	return nil
}

type foldRow struct {
	key   []string
	value []byte
}

func (store *PostgresStorage) fetchPrefix(ctx context.Context, p storage.Prefix) ([]foldRow, error) {
	rows, err := store.db.Query(ctx,
		`SELECT segments, value FROM statadmin_kv WHERE bucket=$1 AND sub=$2 AND NOT tombstone`,
		p.Bucket, p.Sub)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []foldRow
	for rows.Next() {
		var (
			segments []byte
			value    []byte
		)
		if err := rows.Scan(&segments, &value); err != nil {
			return nil, err
		}
		var key []string
		if err := json.Unmarshal(segments, &key); err != nil {
			return nil, err
		}
		res = append(res, foldRow{key: key, value: value})
	}
	return res, rows.Err()
}

func (store *PostgresStorage) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

func (store *PostgresStorage) Close() {
	store.db.Close()
}
