package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ikh/dicomdir/internal/store"
	"ikh/dicomdir/internal/watcher"
)

func NewWatchCommand() *cobra.Command {
	var (
		configPath string
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and ingest every CD directory dropped into it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), configPath, pageSize)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the config file")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "directory listing page size, overrides page_size")

	return cmd
}

func runWatch(ctx context.Context, configPath string, pageSize int) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "watcher",
		ReportTimestamp: true,
	})

	logger.Info("reading config", "path", configPath)
	cfg, err := readConfig(configPath, pageSize)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	logger.SetLevel(level)

	ledger, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	logger.Info("initializing the watcher", "directory", cfg.DirectoryPath)
	w, err := watcher.NewWatcher(cfg, ledger, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("starting the watcher")
	if err := w.Start(ctx); err != nil {
		return err
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
	}
	cancel()
	w.Wait()
	return nil
}
