package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/escaperoom/internal/catalog"
	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/historyui"
	"github.com/verte-zerg/escaperoom/internal/leaderboard"
	"github.com/verte-zerg/escaperoom/internal/logging"
	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/stats"
)

const defaultTrendWindow = 5

var (
	boardLimit int
	boardUser  string

	historyUser   string
	historyLast   int
	historyWindow int
	historyPlain  bool
)

func newStagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Manage the stage catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stages in play order",
		Args:  cobra.NoArgs,
		RunE:  runStagesListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Replace the catalog with the built-in stages",
		Args:  cobra.NoArgs,
		RunE:  runStagesSeedCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <pack.toml>",
		Short: "Replace the catalog with a TOML stage pack",
		Args:  cobra.ExactArgs(1),
		RunE:  runStagesImportCmd,
	})
	return cmd
}

func runStagesListCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	stages, fallback, err := catalog.Load(cmd.Context(), st)
	if err != nil {
		return err
	}
	if fallback {
		logErrln("No stages stored; showing the built-in stages. Run: escaperoom stages seed")
	}
	return stats.RenderStages(cmd.OutOrStdout(), stages)
}

func runStagesSeedCmd(cmd *cobra.Command, _ []string) error {
	return replaceStages(cmd, "built-in stages", catalog.BuiltinInputs())
}

func runStagesImportCmd(cmd *cobra.Command, args []string) error {
	inputs, err := catalog.LoadPack(args[0])
	if err != nil {
		return err
	}
	return replaceStages(cmd, args[0], inputs)
}

func replaceStages(cmd *cobra.Command, source string, inputs []model.StageInput) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	stages, err := st.ReplaceStages(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("failed to replace stages: %w", err)
	}
	logErrf("Loaded %d stages from %s\n", len(stages), source)
	return stats.RenderStages(cmd.OutOrStdout(), stages)
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the fastest escapes",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().IntVar(&boardLimit, "limit", 0, "number of entries (default: leaderboard-size)")
	cmd.Flags().StringVar(&boardUser, "user", "", "also show this player's best rank")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if boardLimit == 0 {
		boardLimit = fileCfg.LeaderboardSize()
	}
	if boardLimit < 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	log, err := logging.New(logging.Options{Level: fileCfg.LogLevel(), Path: fileCfg.LogPath()})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer syncLogger(log)

	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	board, closeBoard := openBoard(ctx, st, fileCfg.RedisSettings(), log)
	defer closeBoard()

	top, err := board.Top(ctx, boardLimit)
	if err != nil {
		return fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if err := stats.RenderLeaderboard(cmd.OutOrStdout(), top); err != nil {
		return err
	}
	if name := strings.TrimSpace(boardUser); name != "" {
		return printRank(ctx, cmd, st, board, name)
	}
	return nil
}

type userFinder interface {
	FindUserByUsername(ctx context.Context, username string) (model.User, error)
}

func printRank(ctx context.Context, cmd *cobra.Command, users userFinder, board leaderboard.Board, name string) error {
	user, err := users.FindUserByUsername(ctx, name)
	if isNotFound(err) {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%s has not played yet.\n", name)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to find player %q: %w", name, err)
	}
	entry, err := board.RankOf(ctx, user.ID)
	if isNotFound(err) {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%s has no completions yet.\n", name)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to rank player %q: %w", name, err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "\n%s: best %s, rank #%d\n", name, clock.Format(entry.CompletionTime), entry.Rank)
	return err
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a player's session history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyUser, "user", "", "player name (default: game.username)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window for the trend")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print the report instead of opening the browser")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "user", &historyUser, fileCfg.Game.Username)
	name := strings.TrimSpace(historyUser)
	if name == "" {
		return fmt.Errorf("--user is required")
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if historyWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}

	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	stages, _, err := catalog.Load(ctx, st)
	if err != nil {
		logErrf("failed to load stages: %v\n", err)
	}
	if !historyPlain {
		m := historyui.NewModel(st, historyui.Options{Username: name, Stages: stages, Last: historyLast, Window: historyWindow})
		program := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}
	report, err := stats.BuildReport(ctx, st, name, stages, historyLast)
	if isNotFound(err) {
		logErrf("No sessions recorded for %s.\n", name)
		return fmt.Errorf("unknown player %q", name)
	}
	if err != nil {
		return err
	}
	return stats.Render(cmd.OutOrStdout(), report, historyWindow, 0)
}
