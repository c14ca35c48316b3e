// Package storage archives preserved genotypes in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/laststand/neural"
)

// GenotypeRecord is one preserved genotype with the fitness it reached.
type GenotypeRecord struct {
	Kind     string // "shooter" or "mob"
	Round    int
	EntityID uint32
	Fitness  float64
	Network  neural.Network
}

// SQLiteArchive stores genotype records in a SQLite database.
type SQLiteArchive struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteArchive returns an archive backed by the database at path.
// Nothing is opened until Init.
func NewSQLiteArchive(path string) *SQLiteArchive {
	return &SQLiteArchive{path: path}
}

// Init opens the database and creates the schema. Calling it twice is a no-op.
func (a *SQLiteArchive) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.path == "" {
		return errors.New("sqlite path is required")
	}
	if a.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", a.path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("opening archive: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("creating archive schema: %w", err)
	}

	a.db = db
	return nil
}

// SaveGenotype appends a record.
func (a *SQLiteArchive) SaveGenotype(ctx context.Context, rec GenotypeRecord) error {
	db, err := a.getDB()
	if err != nil {
		return err
	}

	payload, err := rec.Network.MarshalWeights()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO genotypes (kind, round, entity_id, fitness, payload)
		VALUES (?, ?, ?, ?, ?)
	`, rec.Kind, rec.Round, rec.EntityID, rec.Fitness, payload)
	if err != nil {
		return fmt.Errorf("saving %s genotype %d: %w", rec.Kind, rec.EntityID, err)
	}
	return nil
}

// Top returns up to n records of the given kind, fittest first.
// Ties keep insertion order.
func (a *SQLiteArchive) Top(ctx context.Context, kind string, n int) ([]GenotypeRecord, error) {
	db, err := a.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT kind, round, entity_id, fitness, payload FROM genotypes
		WHERE kind = ?
		ORDER BY fitness DESC, seq ASC
		LIMIT ?
	`, kind, n)
	if err != nil {
		return nil, fmt.Errorf("querying %s genotypes: %w", kind, err)
	}
	defer rows.Close()

	var records []GenotypeRecord
	for rows.Next() {
		var rec GenotypeRecord
		var payload []byte
		if err := rows.Scan(&rec.Kind, &rec.Round, &rec.EntityID, &rec.Fitness, &payload); err != nil {
			return nil, fmt.Errorf("scanning genotype: %w", err)
		}
		rec.Network, err = neural.UnmarshalWeights(payload)
		if err != nil {
			return nil, fmt.Errorf("decode %s genotype %d: %w", rec.Kind, rec.EntityID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading genotypes: %w", err)
	}
	return records, nil
}

// Count returns the number of records of the given kind.
func (a *SQLiteArchive) Count(ctx context.Context, kind string) (int, error) {
	db, err := a.getDB()
	if err != nil {
		return 0, err
	}
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genotypes WHERE kind = ?`, kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s genotypes: %w", kind, err)
	}
	return count, nil
}

// Close closes the database. The archive may be re-initialized afterwards.
func (a *SQLiteArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *SQLiteArchive) getDB() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.db == nil {
		return nil, errors.New("archive is not initialized")
	}
	return a.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS genotypes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			round INTEGER NOT NULL,
			entity_id INTEGER NOT NULL,
			fitness REAL NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS genotypes_kind_fitness ON genotypes (kind, fitness DESC);
	`)
	return err
}
