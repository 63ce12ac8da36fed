package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"ikh/dicomdir/internal/dicomdir"
	"ikh/dicomdir/internal/filetree"
	"ikh/dicomdir/internal/ingest"
	"ikh/dicomdir/internal/models"
)

type manifestFile struct {
	ID   string `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
}

type ingestReport struct {
	Study  *models.Study     `json:"study" yaml:"study"`
	Series []models.Series   `json:"series" yaml:"series"`
	Images []models.ImageRef `json:"images" yaml:"images"`
	Files  []manifestFile    `json:"files" yaml:"files"`
}

func NewIngestCommand() *cobra.Command {
	var (
		format     string
		configPath string
		pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "ingest PATH",
		Short: "Ingest a CD directory and print its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := readConfig(configPath, pageSize)
				if err != nil {
					return err
				}
				pageSize = cfg.PageSize
			}
			d, err := ingest.Dir(cmd.Context(), args[0], ingest.Options{PageSize: pageSize})
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), format, newIngestReport(d))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file to take page_size from")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, fmt.Sprintf("directory listing page size (default %d, overrides page_size)", filetree.DefaultPageSize))

	return cmd
}

func newIngestReport(d *dicomdir.Dicomdir) ingestReport {
	r := ingestReport{Study: d.Study, Series: d.Series, Images: d.Images}
	for _, f := range d.Files {
		path := f.File.Name()
		if p, ok := f.File.(interface{ Path() string }); ok {
			path = p.Path()
		}
		r.Files = append(r.Files, manifestFile{ID: f.ID, Path: path})
	}
	return r
}

func writeReport(w io.Writer, format string, r ingestReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		out, err := yaml.Marshal(r)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case "text":
		writeText(w, r)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

// useColor enables colour only when w is a terminal.
func useColor(w io.Writer) {
	f, ok := w.(*os.File)
	color.NoColor = !ok || !isatty.IsTerminal(f.Fd())
}

func writeText(w io.Writer, r ingestReport) {
	useColor(w)

	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	if r.Study != nil {
		bold.Fprintf(w, "Study %s\n", r.Study.Date.Format("2006-01-02"))
	} else {
		bold.Fprintln(w, "Study (no date)")
	}
	for _, s := range r.Series {
		fmt.Fprintf(w, "  Series %s %s  %d images\n", color.CyanString(s.ID), s.Modality, len(s.Images))
	}
	if grouped := groupedImages(r.Series); grouped < len(r.Images) {
		color.New(color.FgYellow).Fprintf(w, "  %d images outside any series\n", len(r.Images)-grouped)
	}
	fmt.Fprintf(w, "%s %d files\n", color.GreenString("Manifest"), len(r.Files))
	for _, f := range r.Files {
		faint.Fprintf(w, "  %s\t%s\n", f.ID, f.Path)
	}
}

func groupedImages(series []models.Series) int {
	n := 0
	for _, s := range series {
		n += len(s.Images)
	}
	return n
}
