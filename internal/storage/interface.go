package storage

import (
	"errors"

	"github.com/julianstephens/devotional/internal/models"
)

// ErrCorrupt marks persisted content that could not be decoded. Load paths
// log it and degrade to an empty result.
var ErrCorrupt = errors.New("storage corrupt")

// ErrNotInitialized is returned by Load when the database has not been created
var ErrNotInitialized = errors.New("storage not initialized")

// ContentStore is the persistent cache of entries and preferences.
type ContentStore interface {
	// LoadEntries returns the last saved collection in saved order, or an
	// empty slice. It never fails.
	LoadEntries() []models.Entry
	// SaveEntries atomically replaces the whole collection.
	SaveEntries([]models.Entry) error

	// LoadPreferences returns saved preferences or the defaults. It never fails.
	LoadPreferences() models.Preferences
	SavePreferences(models.Preferences) error
}

// AlarmStore persists platform trigger registrations keyed by (trigger id, channel).
type AlarmStore interface {
	// PutRegistration inserts or replaces the registration with the same key
	PutRegistration(r models.Registration) error
	// DeleteRegistrations removes every channel of a trigger
	DeleteRegistrations(triggerID string) error
	// DeleteRegistration removes one channel of a trigger
	DeleteRegistration(triggerID string, channel models.Channel) error
	GetRegistrations() ([]models.Registration, error)
}

// DeliveryLog records shown notifications.
type DeliveryLog interface {
	RecordDelivery(d models.Delivery) error
	// GetDeliveries returns the most recent deliveries, newest first
	GetDeliveries(limit int) ([]models.Delivery, error)
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	ContentStore
	AlarmStore
	DeliveryLog

	// Utils
	GetConfigPath() string
}

// Migrator is implemented by the SQL-backed providers
type Migrator interface {
	Migrate(logFn func(string)) (int, error)
	// SchemaVersion reports the applied and the latest embedded versions
	SchemaVersion() (current, latest int, err error)
}
