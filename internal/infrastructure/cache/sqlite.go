package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pantrylens/backend/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteNameCache persists candidate -> name mappings across restarts
type SQLiteNameCache struct {
	conn *sql.DB
	// writes are serialized so a multi-candidate Set lands as one unit
	writeMu sync.Mutex
}

// OpenSQLiteNameCache opens or creates the cache database at path
func OpenSQLiteNameCache(path string) (*SQLiteNameCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	c := &SQLiteNameCache{conn: conn}
	if err := c.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteNameCache) init() error {
	_, err := c.conn.Exec(`
CREATE TABLE IF NOT EXISTS product_names (
  candidate TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	return err
}

// Close closes the database
func (c *SQLiteNameCache) Close() error {
	return c.conn.Close()
}

// Get returns the cached name. Any storage error is reported as a miss
// wrapped around the cause.
func (c *SQLiteNameCache) Get(ctx context.Context, candidate string) (string, error) {
	var name string
	err := c.conn.QueryRowContext(ctx, `SELECT name FROM product_names WHERE candidate = ?`, candidate).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	return name, nil
}

// Set upserts name for every candidate in a single transaction
func (c *SQLiteNameCache) Set(ctx context.Context, candidates []string, name string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO product_names(candidate, name, updatedAt) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(candidate) DO UPDATE SET name = excluded.name, updatedAt = CURRENT_TIMESTAMP`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, candidate, name); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Clear removes all entries
func (c *SQLiteNameCache) Clear(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.ExecContext(ctx, `DELETE FROM product_names`)
	return err
}

// Size returns the number of cached candidates
func (c *SQLiteNameCache) Size(ctx context.Context) (int, error) {
	var n int
	err := c.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_names`).Scan(&n)
	return n, err
}

// NameCache is a domain.NameCache that may own resources
type NameCache interface {
	domain.NameCache
	Close() error
}

type memoryCloser struct {
	*MemoryNameCache
}

func (memoryCloser) Close() error { return nil }

// New builds the configured name cache. A sqlite file that cannot be opened
// or is corrupt degrades to an empty in-memory cache instead of failing.
func New(cacheType, path string) NameCache {
	if cacheType == "sqlite" {
		c, err := OpenSQLiteNameCache(path)
		if err == nil {
			return c
		}
		log.Printf("[CACHE] sqlite cache %s unavailable, using memory: %v", path, err)
	}
	return memoryCloser{NewMemoryNameCache()}
}
