package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Dialect names the SQL backend; values double as database/sql driver names.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

const defaultTxTimeout = 5 * time.Second

// Config describes how to reach the store.
type Config struct {
	// URL is a postgres:// URL or a SQLite file path / DSN.
	URL          string
	MaxOpenConns int
	TxTimeout    time.Duration
}

// DB wraps the sqlx connection and implements store.Store
type DB struct {
	*ContactRepo
	Conn      *sqlx.DB
	dialect   Dialect
	txTimeout time.Duration
}

// New opens the database, verifies connectivity and runs migrations
func New(cfg Config) (*DB, error) {
	dialect, dsn := resolveDSN(cfg.URL)

	conn, err := sqlx.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch dialect {
	case DialectSQLite:
		// one connection serializes writers and keeps :memory: databases alive
		conn.SetMaxOpenConns(1)
	default:
		maxConns := cfg.MaxOpenConns
		if maxConns <= 0 {
			maxConns = 10
		}
		conn.SetMaxOpenConns(maxConns)
		conn.SetMaxIdleConns(maxConns)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	txTimeout := cfg.TxTimeout
	if txTimeout <= 0 {
		txTimeout = defaultTxTimeout
	}

	db := &DB{
		ContactRepo: newContactRepo(conn, dialect),
		Conn:        conn,
		dialect:     dialect,
		txTimeout:   txTimeout,
	}

	if err := db.runMigrations(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Dialect reports which backend the connection talks to.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.Conn.PingContext(ctx)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.Conn.Close()
}

func (db *DB) txOptions() *sql.TxOptions {
	if db.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	// sqlite takes the write lock at BEGIN via _txlock=immediate
	return nil
}

// resolveDSN picks the driver from the URL scheme. Anything that is not a
// postgres URL is treated as a SQLite path and gets the pragmas the store relies on.
func resolveDSN(url string) (Dialect, string) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres, url
	}
	if url == "" {
		url = "./contacts.db"
	}
	params := []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=on"}
	dsn := url
	for _, p := range params {
		key := p[:strings.IndexByte(p, '=')+1]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return DialectSQLite, dsn
}
