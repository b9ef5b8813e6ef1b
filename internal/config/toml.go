// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game    GameConfig    `toml:"game"`
	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

// GameConfig maps game-related settings.
type GameConfig struct {
	Username        *string `toml:"username"`
	TimerMinutes    *int    `toml:"timer-minutes"`
	AdvanceDelayMs  *int    `toml:"advance-delay-ms"`
	LeaderboardSize *int    `toml:"leaderboard-size"`
}

// StorageConfig maps database settings.
type StorageConfig struct {
	DBPath *string `toml:"db-path"`
}

// RedisConfig maps the optional leaderboard mirror.
type RedisConfig struct {
	Enabled  *bool   `toml:"enabled"`
	Addr     *string `toml:"addr"`
	Password *string `toml:"password"`
	DB       *int    `toml:"db"`
}

// ServerConfig maps HTTP API settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	Mode *string `toml:"mode"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	Path  *string `toml:"path"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
