// Package backup snapshots the SQLite database that holds preferences,
// trigger registrations and the delivery log.
package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/utils"
)

const (
	// MaxBackups is how many snapshots rotation keeps
	MaxBackups = 14
	DirName    = "backups"

	stampLayout = "20060102-150405"
)

var namePattern = regexp.MustCompile(`^devotional-(\d{8}-\d{6})(?:-(\d+))?\.db$`)

type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

type Manager struct {
	dbPath string
	dir    string
	clock  utils.Clock
	log    *log.Logger
}

// NewManager keeps snapshots in a backups directory next to dbPath
func NewManager(dbPath string, clock utils.Clock) *Manager {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Manager{
		dbPath: dbPath,
		dir:    filepath.Join(filepath.Dir(dbPath), DirName),
		clock:  clock,
		log:    logger.Component("backup"),
	}
}

func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the database and rotates old snapshots
func (m *Manager) Create() (string, error) {
	path, err := m.create()
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		m.log.Warn("Failed to rotate backups", "error", err)
	}
	return path, nil
}

func (m *Manager) create() (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path, err := m.nextPath()
	if err != nil {
		return "", err
	}

	src, err := sql.Open("sqlite", "file:"+m.dbPath+"?mode=ro")
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer src.Close()

	if err := verify(src); err != nil {
		return "", fmt.Errorf("database appears to be corrupted: %w", err)
	}
	// VACUUM INTO reads a consistent snapshot even while WAL writers are active
	if _, err := src.Exec("VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}

	m.log.Info("Created backup", "path", path)
	return path, nil
}

func (m *Manager) nextPath() (string, error) {
	stamp := m.clock.Now().UTC().Format(stampLayout)
	path := filepath.Join(m.dir, "devotional-"+stamp+".db")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		if i > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("devotional-%s-%d.db", stamp, i))
	}
}

// List returns snapshots newest first
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	type ranked struct {
		Info
		seq int
	}
	var found []ranked
	for _, e := range entries {
		match := namePattern.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		ts, err := time.Parse(stampLayout, match[1])
		if err != nil {
			continue
		}
		seq, _ := strconv.Atoi(match[2])
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, ranked{Info{Path: filepath.Join(m.dir, e.Name()), Timestamp: ts, Size: info.Size()}, seq})
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].Timestamp.Equal(found[j].Timestamp) {
			return found[i].Timestamp.After(found[j].Timestamp)
		}
		return found[i].seq > found[j].seq
	})
	out := make([]Info, len(found))
	for i, f := range found {
		out[i] = f.Info
	}
	return out, nil
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with a snapshot. The current database is
// snapshotted first. The database must be closed by the caller.
func (m *Manager) Restore(path string) error {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("backup file is invalid: %w", err)
	}
	err = verify(db)
	db.Close()
	if err != nil {
		return fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	if _, err := os.Stat(m.dbPath); err == nil {
		current, err := m.create()
		if err != nil {
			return fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		m.log.Info("Saved current database before restore", "path", current)
	}

	tmp := m.dbPath + ".restore.tmp"
	if err := copyFile(path, tmp); err != nil {
		return fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to restore database: %w", err)
	}
	// stale WAL pages belong to the replaced database
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			m.log.Warn("Failed to remove WAL file", "path", m.dbPath+suffix, "error", err)
		}
	}
	return nil
}

// verify checks that db is a devotional database
func verify(db *sql.DB) error {
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("not a devotional database")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
