// Package db opens the SQLite metastore (saved queries, run history, API
// keys) and applies its embedded migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"
)

// poolMode selects the pool shape for one side of the read/write split.
type poolMode string

const (
	modeWrite poolMode = "write"
	modeRead  poolMode = "read"
)

// DSN hardening applied to every pool.
const (
	busyTimeoutMS = "5000"
	synchronous   = "NORMAL"
	journalMode   = "WAL"
)

// OpenSQLite opens one pool for the metastore file.
//
// The write pool is pinned to a single connection with immediate
// transactions, which serializes writers instead of surfacing SQLITE_BUSY.
// The read pool fans out to maxOpen connections (0 means 4).
func OpenSQLite(path string, mode string, maxOpen int) (*sql.DB, error) {
	m := poolMode(mode)
	if m != modeRead && m != modeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	pool, err := sql.Open("sqlite3", buildDSN(path, m))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if m == modeWrite {
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
	} else {
		if maxOpen <= 0 {
			maxOpen = 4
		}
		pool.SetMaxOpenConns(maxOpen)
		pool.SetMaxIdleConns(maxOpen)
	}
	pool.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}

	return pool, nil
}

// OpenSQLitePair opens the write pool and the read pool for the same file.
// The repositories take the write pool for mutations and the read pool for
// lookups so a slow scan never starves a writer of its one connection.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, string(modeWrite), 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenSQLite(path, string(modeRead), readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}

	return writeDB, readDB, nil
}

func buildDSN(path string, mode poolMode) string {
	params := url.Values{}
	params.Set("_journal_mode", journalMode)
	params.Set("_busy_timeout", busyTimeoutMS)
	params.Set("_synchronous", synchronous)
	params.Set("_foreign_keys", "on")
	if mode == modeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
