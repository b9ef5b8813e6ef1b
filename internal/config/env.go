package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ESCAPEROOM_"

// LoadDotEnv loads variables from a .env file without overriding ones already
// set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides file values with ESCAPEROOM_* variables found by lookup,
// e.g. os.LookupEnv.
func ApplyEnv(cfg *FileConfig, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	strs := []struct {
		key    string
		target **string
	}{
		{"USERNAME", &cfg.Game.Username},
		{"DB_PATH", &cfg.Storage.DBPath},
		{"REDIS_ADDR", &cfg.Redis.Addr},
		{"REDIS_PASSWORD", &cfg.Redis.Password},
		{"SERVER_ADDR", &cfg.Server.Addr},
		{"SERVER_MODE", &cfg.Server.Mode},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_PATH", &cfg.Log.Path},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.key); ok {
			val := v
			*s.target = &val
		}
	}
	ints := []struct {
		key    string
		target **int
	}{
		{"TIMER_MINUTES", &cfg.Game.TimerMinutes},
		{"ADVANCE_DELAY_MS", &cfg.Game.AdvanceDelayMs},
		{"LEADERBOARD_SIZE", &cfg.Game.LeaderboardSize},
		{"REDIS_DB", &cfg.Redis.DB},
	}
	for _, i := range ints {
		v, ok := lookup(EnvPrefix + i.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, i.key, err)
		}
		*i.target = &n
	}
	if v, ok := lookup(EnvPrefix + "REDIS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sREDIS_ENABLED: %w", EnvPrefix, err)
		}
		cfg.Redis.Enabled = &b
	}
	return nil
}
