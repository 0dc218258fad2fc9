// Package sqlstore holds the SQL shared by the sqlite and postgres backends.
package sqlstore

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/devotional/internal/migration"
)

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements storage.ContentStore, storage.AlarmStore and
// storage.DeliveryLog over a database/sql handle.
type Store struct {
	db      *sql.DB
	dialect migration.Dialect

	// serializes SaveEntries so a later save always wins
	saveMu sync.Mutex
}

func New(db *sql.DB, dialect migration.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping runs a trivial query against the database
func (s *Store) Ping() error {
	var one int
	return s.db.QueryRow("SELECT 1").Scan(&one)
}

// rebind rewrites ? placeholders for the store's dialect
func (s *Store) rebind(query string) string {
	if s.dialect != migration.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// upsertSQL replaces a key/value row in table
func (s *Store) upsertSQL(table string) string {
	return s.rebind("INSERT INTO " + table + " (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value")
}
