package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/escaperoom/internal/config"
	"github.com/verte-zerg/escaperoom/internal/logging"
	"github.com/verte-zerg/escaperoom/internal/server"
)

var (
	serveAddr    string
	serveMode    string
	serveEnvFile string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", config.DefaultServerAddr, "listen address")
	cmd.Flags().StringVar(&serveMode, "mode", config.DefaultServerMode, "gin mode (debug, release, test)")
	cmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "dotenv file with ESCAPEROOM_* overrides")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(serveEnvFile); err != nil {
		return err
	}
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(&fileCfg, os.LookupEnv); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	if !cmd.Flags().Changed("addr") {
		serveAddr = fileCfg.ServerAddr()
	}
	if !cmd.Flags().Changed("mode") {
		serveMode = fileCfg.ServerMode()
	}

	log, err := logging.New(logging.Options{
		Level:   fileCfg.LogLevel(),
		Path:    fileCfg.LogPath(),
		Console: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer syncLogger(log)

	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	board, closeBoard := openBoard(ctx, st, fileCfg.RedisSettings(), log)
	defer closeBoard()

	srv := server.New(st, board, log, serveMode)
	if err := srv.Run(ctx, serveAddr); err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}
