package sqlstore

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/devotional/internal/models"
)

func (s *Store) PutRegistration(r models.Registration) error {
	var lastFired sql.NullString
	if r.LastFiredAt != nil {
		lastFired = sql.NullString{String: formatTime(*r.LastFiredAt), Valid: true}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(s.rebind(`
		INSERT INTO alarms (trigger_id, channel, kind, mechanism, fire_at, interval_sec, last_fired_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trigger_id, channel) DO UPDATE SET
			kind = excluded.kind,
			mechanism = excluded.mechanism,
			fire_at = excluded.fire_at,
			interval_sec = excluded.interval_sec,
			last_fired_at = excluded.last_fired_at,
			created_at = excluded.created_at
	`),
		r.TriggerID, string(r.Channel), string(r.Kind), string(r.Mechanism),
		formatTime(r.FireAt), int64(r.Interval/time.Second), lastFired, formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s on %s: %w", r.TriggerID, r.Channel, err)
	}
	return nil
}

func (s *Store) DeleteRegistrations(triggerID string) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM alarms WHERE trigger_id = ?"), triggerID)
	return err
}

// DeleteRegistration removes one channel of a trigger
func (s *Store) DeleteRegistration(triggerID string, channel models.Channel) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM alarms WHERE trigger_id = ? AND channel = ?"), triggerID, string(channel))
	return err
}

// GetRegistrations returns all registrations ordered by fire time
func (s *Store) GetRegistrations() ([]models.Registration, error) {
	rows, err := s.db.Query(`
		SELECT trigger_id, channel, kind, mechanism, fire_at, interval_sec, last_fired_at, created_at
		FROM alarms
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []models.Registration
	for rows.Next() {
		var (
			r                 models.Registration
			channel, kind     string
			mechanism, fireAt string
			intervalSec       int64
			lastFired         sql.NullString
			createdAt         string
		)
		if err := rows.Scan(&r.TriggerID, &channel, &kind, &mechanism, &fireAt, &intervalSec, &lastFired, &createdAt); err != nil {
			return nil, err
		}
		r.Channel = models.Channel(channel)
		r.Kind = models.TriggerKind(kind)
		r.Mechanism = models.Mechanism(mechanism)
		r.Interval = time.Duration(intervalSec) * time.Second
		if r.FireAt, err = parseTime(fireAt); err != nil {
			return nil, fmt.Errorf("registration %s: invalid fire_at: %w", r.TriggerID, err)
		}
		if r.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("registration %s: invalid created_at: %w", r.TriggerID, err)
		}
		if lastFired.Valid {
			t, err := parseTime(lastFired.String)
			if err != nil {
				return nil, fmt.Errorf("registration %s: invalid last_fired_at: %w", r.TriggerID, err)
			}
			r.LastFiredAt = &t
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(regs, func(i, j int) bool {
		if !regs[i].FireAt.Equal(regs[j].FireAt) {
			return regs[i].FireAt.Before(regs[j].FireAt)
		}
		if regs[i].TriggerID != regs[j].TriggerID {
			return regs[i].TriggerID < regs[j].TriggerID
		}
		return regs[i].Channel < regs[j].Channel
	})
	return regs, nil
}
