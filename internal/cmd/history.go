package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ikh/dicomdir/internal/config"
	"ikh/dicomdir/internal/models"
	"ikh/dicomdir/internal/store"
)

func NewHistoryCommand() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List ingests recorded by the watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}
			ledger, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ingests, err := ledger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeHistory(cmd.OutOrStdout(), ingests)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the config file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of ingests to show, 0 for all")

	return cmd
}

func writeHistory(w io.Writer, ingests []models.Ingest) {
	useColor(w)
	if len(ingests) == 0 {
		fmt.Fprintln(w, "no ingests recorded")
		return
	}
	for _, in := range ingests {
		study := "-"
		if !in.StudyDate.IsZero() {
			study = in.StudyDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s  %s  study %s  %d series  %d images  %s\n",
			in.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			color.CyanString(in.ID), study, in.SeriesCount, in.ImageCount, in.Source)
	}
}
