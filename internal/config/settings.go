package config

// Defaults for values missing from the file, the environment and flags.
const (
	DefaultTimerMinutes    = 30
	DefaultAdvanceDelayMs  = 1500
	DefaultLeaderboardSize = 10
	DefaultServerAddr      = ":8080"
	DefaultServerMode      = "release"
	DefaultRedisAddr       = "localhost:6379"
	DefaultLogLevel        = "info"

	MinTimerMinutes = 1
	MaxTimerMinutes = 120
)

// DBPath returns the configured database path or the XDG default.
func (c FileConfig) DBPath() string {
	return stringOr(c.Storage.DBPath, DefaultDBPath())
}

// LogPath returns the configured log file or the XDG default.
func (c FileConfig) LogPath() string {
	return stringOr(c.Log.Path, DefaultLogPath())
}

// LogLevel returns the configured log level.
func (c FileConfig) LogLevel() string {
	return stringOr(c.Log.Level, DefaultLogLevel)
}

// LeaderboardSize returns how many leaderboard rows to show.
func (c FileConfig) LeaderboardSize() int {
	if c.Game.LeaderboardSize == nil || *c.Game.LeaderboardSize <= 0 {
		return DefaultLeaderboardSize
	}
	return *c.Game.LeaderboardSize
}

// ServerAddr returns the HTTP listen address.
func (c FileConfig) ServerAddr() string {
	return stringOr(c.Server.Addr, DefaultServerAddr)
}

// ServerMode returns the gin mode: debug, release or test.
func (c FileConfig) ServerMode() string {
	return stringOr(c.Server.Mode, DefaultServerMode)
}

// RedisSettings is the resolved leaderboard mirror configuration.
type RedisSettings struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// RedisSettings resolves the mirror configuration. The mirror is off unless
// enabled explicitly.
func (c FileConfig) RedisSettings() RedisSettings {
	rs := RedisSettings{
		Addr:     stringOr(c.Redis.Addr, DefaultRedisAddr),
		Password: stringOr(c.Redis.Password, ""),
	}
	if c.Redis.Enabled != nil {
		rs.Enabled = *c.Redis.Enabled
	}
	if c.Redis.DB != nil {
		rs.DB = *c.Redis.DB
	}
	return rs
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}
