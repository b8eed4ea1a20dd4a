// Package querylog persists handled DNS queries to SQLite.
//
// Every datagram the server handles (including dropped, undecodable ones)
// becomes one row. Inserts go through a buffered channel and a single
// writer goroutine so the DNS hot path never blocks on the database; when
// the buffer is full the entry is dropped and counted.
package querylog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one handled query.
type Entry struct {
	Time       time.Time
	ClientIP   string
	ClientPort int
	ID         uint16 // DNS transaction id
	QName      string
	QType      uint16
	Variant    string // policy variant, or "dropped" for undecodable datagrams
	RCode      uint8
	Answered   bool
}

// Log is a SQLite-backed query log. Safe for concurrent use.
type Log struct {
	conn    *sql.DB
	logger  *slog.Logger
	ch      chan Entry
	wg      sync.WaitGroup
	closed  atomic.Bool
	dropped atomic.Uint64
}

const insertBuffer = 1024

// Open opens or creates the query log database at path and starts the
// background writer. Schema is managed by embedded migrations.
func Open(path string, logger *slog.Logger) (*Log, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	l := &Log{
		conn:   conn,
		logger: logger,
		ch:     make(chan Entry, insertBuffer),
	}
	l.wg.Add(1)
	go l.writeLoop()
	return l, nil
}

func runMigrations(conn *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Record queues an entry for insertion. Never blocks: if the buffer is
// full the entry is dropped and the drop is counted.
func (l *Log) Record(e Entry) {
	if l == nil || l.closed.Load() {
		return
	}
	select {
	case l.ch <- e:
	default:
		l.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded due to backpressure.
func (l *Log) Dropped() uint64 {
	return l.dropped.Load()
}

func (l *Log) writeLoop() {
	defer l.wg.Done()
	for e := range l.ch {
		if err := l.insert(e); err != nil && l.logger != nil {
			l.logger.Warn("query log insert failed", "err", err)
		}
	}
}

func (l *Log) insert(e Entry) error {
	_, err := l.conn.Exec(
		`INSERT INTO queries (ts, client_ip, client_port, txn_id, qname, qtype, variant, rcode, answered)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano),
		e.ClientIP,
		e.ClientPort,
		e.ID,
		e.QName,
		e.QType,
		e.Variant,
		e.RCode,
		e.Answered,
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.conn.QueryContext(ctx,
		`SELECT ts, client_ip, client_port, txn_id, qname, qtype, variant, rcode, answered
		 FROM queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query log select: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&ts, &e.ClientIP, &e.ClientPort, &e.ID, &e.QName, &e.QType, &e.Variant, &e.RCode, &e.Answered); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Time = parsed
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the total number of logged queries.
func (l *Log) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM queries").Scan(&n)
	return n, err
}

// Close stops the writer, drains pending entries, and closes the database.
func (l *Log) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(l.ch)
	l.wg.Wait()
	return l.conn.Close()
}
