// Package config loads environment files and the fixed notification slots.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/julianstephens/devotional/internal/constants"
	"github.com/julianstephens/devotional/internal/logger"
	"github.com/julianstephens/devotional/internal/utils"
)

// LoadEnv loads .env.<DEVOTIONAL_ENV> and then .env from each directory,
// or from the working directory when none is given. Missing files are
// skipped and variables already set in the process win. It returns the
// files that were loaded.
func LoadEnv(dirs ...string) []string {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var names []string
	if appEnv := GetAppEnv(); appEnv != "" {
		names = append(names, ".env."+appEnv)
	}
	names = append(names, ".env")

	var loaded []string
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				logger.Warn("Failed to load env file", "path", path, "error", err)
				continue
			}
			loaded = append(loaded, path)
		}
	}
	return loaded
}

// GetAppEnv returns the deployment name used to pick an env file
func GetAppEnv() string {
	return getEnv(constants.EnvAppEnv, "")
}

// Slots are the local wall-clock times at which triggers fire.
type Slots struct {
	Morning  utils.TimeOfDay
	Nugget   utils.TimeOfDay
	Prefetch utils.TimeOfDay
}

// DefaultSlots returns 06:00 morning, 10:00 nugget and 09:45 prefetch.
func DefaultSlots() Slots {
	return Slots{
		Morning:  utils.MustTimeOfDay(constants.DefaultMorningAt),
		Nugget:   utils.MustTimeOfDay(constants.DefaultNuggetAt),
		Prefetch: utils.MustTimeOfDay(constants.DefaultPrefetchAt),
	}
}

// LoadSlots applies DEVOTIONAL_*_AT overrides on top of the defaults.
func LoadSlots() (Slots, error) {
	slots := DefaultSlots()
	overrides := []struct {
		key string
		dst *utils.TimeOfDay
	}{
		{constants.EnvMorningAt, &slots.Morning},
		{constants.EnvNuggetAt, &slots.Nugget},
		{constants.EnvPrefetchAt, &slots.Prefetch},
	}
	for _, o := range overrides {
		v := getEnv(o.key, "")
		if v == "" {
			continue
		}
		tod, err := utils.ParseTimeOfDay(v)
		if err != nil {
			return Slots{}, fmt.Errorf("%s: %w", o.key, err)
		}
		*o.dst = tod
	}
	return slots, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
