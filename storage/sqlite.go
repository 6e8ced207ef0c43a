package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDB keeps the ledger key space in a single table. It is useful when the
// operator wants to inspect state with ordinary SQL tooling.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database file at path and ensures the schema exists.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc.org/sqlite serialises writers; a single connection avoids
	// SQLITE_BUSY between the pool's connections.
	db.SetMaxOpenConns(1)
	store := &SQLiteDB{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteDB) init() error {
	const schema = `CREATE TABLE IF NOT EXISTS kv (
            key BLOB PRIMARY KEY,
            value BLOB NOT NULL
        );`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("storage: sqlite schema: %w", err)
	}
	return nil
}

const sqliteUpsert = `INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

func (s *SQLiteDB) Put(key []byte, value []byte) error {
	_, err := s.db.Exec(sqliteUpsert, key, value)
	return err
}

func (s *SQLiteDB) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLiteDB) Has(key []byte) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM kv WHERE key = ?`, key).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteDB) Delete(key []byte) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Write applies the batch in one SQL transaction.
func (s *SQLiteDB) Write(batch *Batch) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	for _, op := range batch.Ops() {
		if op.Value == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, op.Key); err != nil {
				return fmt.Errorf("storage: sqlite delete: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsert, op.Key, op.Value); err != nil {
			return fmt.Errorf("storage: sqlite upsert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: sqlite commit: %w", err)
	}
	return nil
}

func (s *SQLiteDB) Close() {
	_ = s.db.Close()
}
