package sqlstore

import (
	"strconv"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/models"
)

// LoadPreferences returns the saved toggles. Missing or unreadable keys keep
// their default.
func (s *Store) LoadPreferences() models.Preferences {
	prefs := models.DefaultPreferences()

	rows, err := s.db.Query("SELECT key, value FROM preferences")
	if err != nil {
		logger.Warn("Failed to read preferences, using defaults", "error", err)
		return prefs
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			logger.Warn("Failed to read preferences, using defaults", "error", err)
			return models.DefaultPreferences()
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			logger.Warn("Ignoring malformed preference", "key", key, "value", value)
			continue
		}
		switch key {
		case constants.PrefNotificationsEnabled:
			prefs.MasterEnabled = b
		case constants.PrefMorningEnabled:
			prefs.MorningEnabled = b
		case constants.PrefNuggetEnabled:
			prefs.NuggetEnabled = b
		}
	}
	if err := rows.Err(); err != nil {
		logger.Warn("Failed to read preferences, using defaults", "error", err)
		return models.DefaultPreferences()
	}
	return prefs
}

// SavePreferences writes all toggles in one transaction
func (s *Store) SavePreferences(prefs models.Preferences) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.upsertSQL("preferences"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := map[string]bool{
		constants.PrefNotificationsEnabled: prefs.MasterEnabled,
		constants.PrefMorningEnabled:       prefs.MorningEnabled,
		constants.PrefNuggetEnabled:        prefs.NuggetEnabled,
	}
	for key, v := range values {
		if _, err := stmt.Exec(key, strconv.FormatBool(v)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// EnsureDefaultPreferences writes the defaults on first run
func (s *Store) EnsureDefaultPreferences() error {
	var count int
	if err := s.db.QueryRow("SELECT count(*) FROM preferences").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.SavePreferences(models.DefaultPreferences())
}
