package cmd

import (
	"github.com/spf13/cobra"

	"ikh/dicomdir/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

const defaultConfigPath = "/app/config.yaml"

// NewRootCommand creates and returns the root cobra command for dicomdir
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomdir",
		Short: "Ingest DICOM CD directories",
		Long: `dicomdir reads the DICOMDIR of a dropped CD directory, groups its
records into study, series and images, and resolves every referenced
file against the files actually present.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewIngestCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// readConfig reads the config file at path. A positive pageSize overrides
// the file's page_size.
func readConfig(path string, pageSize int) (*config.Config, error) {
	cfg, err := config.ReadConfig(path)
	if err != nil {
		return nil, err
	}
	if pageSize > 0 {
		cfg.PageSize = pageSize
	}
	return cfg, nil
}
