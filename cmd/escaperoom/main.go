// Package main provides the CLI entrypoint for escaperoom.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/catalog"
	"github.com/verte-zerg/escaperoom/internal/config"
	"github.com/verte-zerg/escaperoom/internal/game"
	"github.com/verte-zerg/escaperoom/internal/leaderboard"
	"github.com/verte-zerg/escaperoom/internal/logging"
	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/recorder"
	"github.com/verte-zerg/escaperoom/internal/store"
	"github.com/verte-zerg/escaperoom/internal/tui"
)

const (
	flushTimeout     = 5 * time.Second
	redisPingTimeout = 2 * time.Second
)

var (
	playUser            string
	playMinutes         int
	playAdvanceDelayMs  int
	playLeaderboardSize int
	dbPath              string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "escaperoom",
		Short:         "Terminal code escape room",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: XDG data dir)")
	rootCmd.Flags().StringVar(&playUser, "user", "", "player name to prefill")
	rootCmd.Flags().IntVar(&playMinutes, "minutes", config.DefaultTimerMinutes, "countdown length in minutes")
	rootCmd.Flags().IntVar(&playAdvanceDelayMs, "advance-delay-ms", config.DefaultAdvanceDelayMs, "pause before the next stage after a pass")
	rootCmd.Flags().IntVar(&playLeaderboardSize, "leaderboard-size", config.DefaultLeaderboardSize, "rows shown on the leaderboard")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStagesCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "user", &playUser, fileCfg.Game.Username)
	applyIntConfig(cmd, "minutes", &playMinutes, fileCfg.Game.TimerMinutes)
	applyIntConfig(cmd, "advance-delay-ms", &playAdvanceDelayMs, fileCfg.Game.AdvanceDelayMs)
	applyIntConfig(cmd, "leaderboard-size", &playLeaderboardSize, fileCfg.Game.LeaderboardSize)

	cfg := model.Config{
		Username:        strings.TrimSpace(playUser),
		TimerMinutes:    playMinutes,
		AdvanceDelay:    time.Duration(playAdvanceDelayMs) * time.Millisecond,
		LeaderboardSize: playLeaderboardSize,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	// Console output would draw over the game, so the TUI logs to file only.
	log, err := logging.New(logging.Options{Level: fileCfg.LogLevel(), Path: fileCfg.LogPath()})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer syncLogger(log)

	ctx := context.Background()
	var (
		recStore recorder.Store = offlineStore{}
		stages   []model.Stage
		board    leaderboard.Board
		warning  string
	)
	st, err := store.Open(resolveDBPath(fileCfg))
	if err != nil {
		log.Warn("database unavailable, playing offline", zap.Error(err))
		stages = catalog.Fallback()
		warning = "Database unavailable: playing the built-in stages offline."
	} else {
		defer closeStore(st)
		recStore = st
		var loadErr error
		stages, _, loadErr = catalog.Load(ctx, st)
		if loadErr != nil {
			log.Warn("stage catalog unavailable, using built-in stages", zap.Error(loadErr))
			warning = "Stage catalog unavailable: playing the built-in stages."
		}
		var closeBoard func()
		board, closeBoard = openBoard(ctx, st, fileCfg.RedisSettings(), log)
		defer closeBoard()
	}

	machine, err := game.NewMachine(stages, cfg.TimerSeconds(), game.WithAdvanceDelay(cfg.AdvanceDelay))
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	if warning != "" {
		machine.Warn(warning)
	}

	relay := &tui.Relay{}
	rec := recorder.New(recStore, board, log,
		recorder.WithNotify(relay.Notify),
		recorder.WithTopSize(cfg.LeaderboardSize),
	)
	m := tui.NewModel(cfg, machine, rec, board, log)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	relay.Attach(program)
	_, runErr := program.Run()

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := rec.Close(flushCtx); err != nil {
		logErrf("failed to flush game records: %v\n", err)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

// openBoard returns the SQL board, mirrored to Redis when configured. The
// returned func releases the Redis client.
func openBoard(ctx context.Context, st *store.Store, rs config.RedisSettings, log *zap.Logger) (leaderboard.Board, func()) {
	sqlBoard := leaderboard.NewSQL(st)
	if !rs.Enabled {
		return sqlBoard, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: rs.Addr, Password: rs.Password, DB: rs.DB})
	mirror := leaderboard.NewRedis(client)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	board := leaderboard.NewMirrored(sqlBoard, mirror, log)
	if err := mirror.Ping(pingCtx); err != nil {
		log.Warn("leaderboard mirror unreachable, reads fall back to the database", zap.String("addr", rs.Addr), zap.Error(err))
	} else if err := board.Sync(ctx); err != nil {
		log.Warn("leaderboard mirror sync failed, reads fall back to the database", zap.Error(err))
	}
	release := func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	return board, release
}

// offlineStore rejects every write so the recorder reports an offline game.
type offlineStore struct{}

func (offlineStore) EnsureUser(context.Context, string) (model.User, error) {
	return model.User{}, model.ErrUnavailable
}

func (offlineStore) CreateSession(context.Context, model.NewSession) (model.GameSession, error) {
	return model.GameSession{}, model.ErrUnavailable
}

func (offlineStore) CreateAttempt(context.Context, model.NewAttempt) (model.StageAttempt, error) {
	return model.StageAttempt{}, model.ErrUnavailable
}

func (offlineStore) UpdateSession(context.Context, string, model.SessionUpdate) (model.GameSession, error) {
	return model.GameSession{}, model.ErrUnavailable
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

// resolveDBPath prefers --db over the config file.
func resolveDBPath(fileCfg config.FileConfig) string {
	if dbPath != "" {
		return dbPath
	}
	return fileCfg.DBPath()
}

func openStore(fileCfg config.FileConfig) (*store.Store, error) {
	st, err := store.Open(resolveDBPath(fileCfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func syncLogger(log *zap.Logger) {
	// Sync on a console core reports EINVAL for terminals; nothing to act on.
	_ = log.Sync()
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# escaperoom configuration
# Uncomment a value to enable it. CLI flags override config values.
# serve also reads ESCAPEROOM_* variables, optionally from a .env file.

[game]
# username = "ada"             # Player name to prefill
# timer-minutes = %d           # Countdown length (%d-%d)
# advance-delay-ms = %d      # Pause before the next stage after a pass
# leaderboard-size = %d        # Rows shown on the leaderboard

[storage]
# db-path = %q

[redis]
# enabled = false              # Mirror the leaderboard to Redis
# addr = %q
# password = ""
# db = 0

[server]
# addr = %q
# mode = %q              # gin mode: debug, release or test

[log]
# level = %q
# path = %q
`,
		config.DefaultTimerMinutes,
		config.MinTimerMinutes,
		config.MaxTimerMinutes,
		config.DefaultAdvanceDelayMs,
		config.DefaultLeaderboardSize,
		config.DefaultDBPath(),
		config.DefaultRedisAddr,
		config.DefaultServerAddr,
		config.DefaultServerMode,
		config.DefaultLogLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.TimerMinutes < config.MinTimerMinutes || cfg.TimerMinutes > config.MaxTimerMinutes {
		return fmt.Errorf("--minutes must be between %d and %d", config.MinTimerMinutes, config.MaxTimerMinutes)
	}
	if cfg.AdvanceDelay < 0 {
		return fmt.Errorf("--advance-delay-ms must be >= 0")
	}
	if cfg.LeaderboardSize <= 0 {
		return fmt.Errorf("--leaderboard-size must be > 0")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrNotFound)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
