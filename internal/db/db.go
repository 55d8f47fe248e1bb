package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/connectapp/apiserver/config"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25
)

// Dialect identifies the SQL flavour spoken by the opened database.
type Dialect string

const (
	DialectSQLite   Dialect = config.DriverSQLite
	DialectPostgres Dialect = config.DriverPostgres
)

// DB is a connection pool bound to its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.Config) (*DB, error) {
	dialect := Dialect(cfg.Database.Driver)

	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case DialectSQLite:
		conn, err = sql.Open("sqlite", sqliteDSN(cfg.Database.Path))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		// SQLite allows a single writer; one connection keeps writes ordered
		// and the per-connection pragmas in effect.
		conn.SetMaxOpenConns(1)
	case DialectPostgres:
		conn, err = sql.Open("postgres", PostgresURL(cfg))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		conn.SetConnMaxIdleTime(defaultConnMaxIdle)
		conn.SetConnMaxLifetime(defaultConnMaxLife)
		conn.SetMaxIdleConns(defaultMaxIdleConns)
		conn.SetMaxOpenConns(defaultMaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: conn, Dialect: dialect}, nil
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (d *DB) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// PostgresURL builds the lib/pq connection URL for the configured database.
func PostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Path:   cfg.Database.DBName,
	}

	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Set("_time_format", "sqlite")
	return "file:" + path + "?" + q.Encode()
}
