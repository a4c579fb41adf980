// Package sqlite stores the ledger in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"syntego/internal/core"
	"syntego/internal/ledger"
)

const (
	selectAll = `SELECT date, type, category, amount, description FROM transactions ORDER BY position, id`
	deleteAll = `DELETE FROM transactions`
	insertOne = `INSERT INTO transactions (position, date, type, category, amount, description) VALUES (?, ?, ?, ?, ?, ?)`
)

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

// Open creates the database file if needed and migrates it.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (core.Ledger, error) {
	rows, err := s.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := core.Ledger{}
	for rows.Next() {
		rec := make([]string, len(ledger.Header))
		if err := rows.Scan(&rec[0], &rec[1], &rec[2], &rec[3], &rec[4]); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx, err := ledger.DecodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save rewrites the table in one transaction; on failure nothing changes.
func (s *Store) Save(ctx context.Context, l core.Ledger) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteAll); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	if len(l) > 0 {
		stmt, perr := tx.PrepareContext(ctx, insertOne)
		if perr != nil {
			err = perr
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, t := range l {
			row := ledger.EncodeRow(t)
			if _, err = stmt.ExecContext(ctx, i, row[0], row[1], row[2], row[3], row[4]); err != nil {
				return fmt.Errorf("insert transaction %d: %w", i, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
