package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/keyring"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/storage"
	"github.com/julianstephens/devotional/internal/storage/postgres"
	"github.com/julianstephens/devotional/internal/storage/sqlite"
)

// IsPostgres reports whether config selects the Postgres backend
func IsPostgres(config string) bool {
	return config == "postgres" || config == "postgresql" ||
		strings.HasPrefix(config, "postgres://") || strings.HasPrefix(config, "postgresql://")
}

// ExpandPath resolves a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ConfigDir is the directory holding logs for the given config
func ConfigDir(config string) (string, error) {
	if IsPostgres(config) {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, constants.AppName), nil
	}
	path, err := ExpandPath(config)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// OpenStore selects the storage backend for config. For Postgres the
// connection string comes from the environment or the OS keyring; a URL
// given on the command line is used only when neither is set and must not
// carry a password.
func OpenStore(config string) (storage.Provider, error) {
	if !IsPostgres(config) {
		path, err := ExpandPath(config)
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(path), nil
	}

	connStr, source, err := keyring.ResolveConnectionString()
	switch {
	case err == nil:
		logger.Debug("Using PostgreSQL connection string", "source", source)
	case errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrKeyringUnavailable):
		if !strings.Contains(config, "://") {
			return nil, fmt.Errorf("no PostgreSQL connection string found; set %s or run 'devotional keyring set'", constants.EnvDBConn)
		}
		if _, verr := postgres.ValidateConnString(config); verr != nil {
			return nil, verr
		}
		connStr = config
	default:
		return nil, err
	}
	return postgres.New(connStr), nil
}
