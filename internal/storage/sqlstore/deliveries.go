package sqlstore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/devotional/internal/models"
)

// RecordDelivery appends to the delivery log, assigning an id when missing
func (s *Store) RecordDelivery(d models.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.Exec(s.rebind(`
		INSERT INTO deliveries (id, notification_id, kind, entry_id, body, fallback, delivered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), d.ID, d.NotificationID, string(d.Kind), d.EntryID, d.Body, d.Fallback, formatTime(d.DeliveredAt))
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (s *Store) GetDeliveries(limit int) ([]models.Delivery, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.Query(s.rebind(`
		SELECT id, notification_id, kind, entry_id, body, fallback, delivered_at
		FROM deliveries
		ORDER BY delivered_at DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Delivery
	for rows.Next() {
		var (
			d          models.Delivery
			kind, when string
		)
		if err := rows.Scan(&d.ID, &d.NotificationID, &kind, &d.EntryID, &d.Body, &d.Fallback, &when); err != nil {
			return nil, err
		}
		d.Kind = models.TriggerKind(kind)
		if d.DeliveredAt, err = parseTime(when); err != nil {
			return nil, fmt.Errorf("delivery %s: invalid delivered_at: %w", d.ID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
