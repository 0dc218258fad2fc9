package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
	"github.com/julianstephens/devotional/internal/storage"
)

const (
	metaEntriesVersion = "entries_version"
	metaEntriesSavedAt = "entries_saved_at"
)

// LoadEntries returns the cached collection in saved order. Unreadable or
// version-mismatched data yields an empty slice.
func (s *Store) LoadEntries() []models.Entry {
	entries, err := s.loadEntries()
	if err != nil {
		logger.Warn("Discarding cached entries", "error", err)
		return []models.Entry{}
	}
	return entries
}

func (s *Store) loadEntries() ([]models.Entry, error) {
	var version string
	err := s.db.QueryRow(s.rebind("SELECT value FROM cache_meta WHERE key = ?"), metaEntriesVersion).Scan(&version)
	if err == sql.ErrNoRows {
		return []models.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if version != strconv.Itoa(constants.EntriesFormatVersion) {
		return nil, fmt.Errorf("%w: entries format version %q, want %d", storage.ErrCorrupt, version, constants.EntriesFormatVersion)
	}

	rows, err := s.db.Query("SELECT id, date, title, body, fields, banner_image_url FROM devotionals ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var (
			e      models.Entry
			body   sql.NullString
			fields string
		)
		if err := rows.Scan(&e.ID, &e.Date, &e.Title, &body, &fields, &e.BannerImageURL); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
		}
		if body.Valid {
			e.Body = &body.String
		}
		if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
			return nil, fmt.Errorf("%w: entry %d fields: %v", storage.ErrCorrupt, e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveEntries replaces the collection in one transaction. Readers see either
// the old or the new collection.
func (s *Store) SaveEntries(entries []models.Entry) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM devotionals"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	stmt, err := tx.Prepare(s.rebind(`
		INSERT INTO devotionals (position, id, date, title, body, fields, banner_image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		fields, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode fields of entry %d: %w", e.ID, err)
		}
		var body sql.NullString
		if e.Body != nil {
			body = sql.NullString{String: *e.Body, Valid: true}
		}
		if _, err := stmt.Exec(i, e.ID, e.Date, e.Title, body, string(fields), e.BannerImageURL); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", e.ID, err)
		}
	}

	meta, err := tx.Prepare(s.upsertSQL("cache_meta"))
	if err != nil {
		return err
	}
	defer meta.Close()

	if _, err := meta.Exec(metaEntriesVersion, strconv.Itoa(constants.EntriesFormatVersion)); err != nil {
		return err
	}
	if _, err := meta.Exec(metaEntriesSavedAt, formatTime(time.Now())); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Debug("Replaced cached entries", "count", len(entries))
	return nil
}

// EntriesSavedAt returns when the collection was last replaced
func (s *Store) EntriesSavedAt() (time.Time, bool) {
	var v string
	if err := s.db.QueryRow(s.rebind("SELECT value FROM cache_meta WHERE key = ?"), metaEntriesSavedAt).Scan(&v); err != nil {
		return time.Time{}, false
	}
	t, err := parseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
