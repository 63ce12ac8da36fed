package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"ikh/dicomdir/internal/dicomdir"
	"ikh/dicomdir/internal/models"
	"ikh/dicomdir/internal/store"
)

type namedFile string

func (f namedFile) Name() string { return string(f) }

func (f namedFile) Open() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }

func sampleReport() ingestReport {
	return ingestReport{
		Study: &models.Study{Date: time.Date(2021, 7, 4, 0, 0, 0, 0, time.UTC)},
		Series: []models.Series{
			{ID: "1", Modality: "CT", Images: []models.ImageRef{{ID: `A\IM1`}}},
		},
		Images: []models.ImageRef{{ID: `ORPHAN`}, {ID: `A\IM1`}},
		Files: []manifestFile{
			{ID: "DICOMDIR", Path: "cd/DICOMDIR"},
			{ID: "ORPHAN", Path: "cd/orphan"},
			{ID: "A/IM1", Path: "cd/a/im1"},
		},
	}
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "text", sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Study 2021-07-04")
	assert.Contains(t, out, "Series 1 CT  1 images")
	assert.Contains(t, out, "1 images outside any series")
	assert.Contains(t, out, "Manifest 3 files")
	assert.Contains(t, out, "A/IM1\tcd/a/im1")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "json", sampleReport()))

	var got ingestReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport().Files, got.Files)
	assert.Equal(t, "CT", got.Series[0].Modality)
}

func TestWriteReportYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, "yaml", sampleReport()))

	var got struct {
		Files []manifestFile `yaml:"files"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport().Files, got.Files)
}

func TestWriteReportUnknownFormat(t *testing.T) {
	assert.Error(t, writeReport(&bytes.Buffer{}, "xml", sampleReport()))
}

func TestNewIngestReportUsesManifestOrder(t *testing.T) {
	d := &dicomdir.Dicomdir{
		Files: []dicomdir.ManifestEntry{
			{ID: "DICOMDIR", File: namedFile("DICOMDIR")},
			{ID: "A/IM1", File: namedFile("IM1")},
		},
	}
	r := newIngestReport(d)
	assert.Equal(t, []manifestFile{{ID: "DICOMDIR", Path: "DICOMDIR"}, {ID: "A/IM1", Path: "IM1"}}, r.Files)
}

func TestIngestCommandNotADicomCD(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "holiday")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beach.jpg"), nil, 0644))

	root := NewRootCommand()
	root.SetArgs([]string{"ingest", dir})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	assert.ErrorIs(t, err, dicomdir.ErrMalformed)
}

func TestHistoryCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ledger.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("directory_path: "+dir+"\ndatabase_path: "+dbPath+"\n"), 0644))

	ledger, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, ledger.Record(context.Background(), models.Ingest{
		ID: "ingest-1", Source: "/drops/cd1", SeriesCount: 2, ImageCount: 7, CreatedAt: time.Now(),
	}))
	require.NoError(t, ledger.Close())

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetArgs([]string{"history", "--config", cfgPath})
	root.SetOut(&out)
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ingest-1")
	assert.Contains(t, out.String(), "2 series  7 images  /drops/cd1")
}

func TestWriteHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	writeHistory(&buf, nil)
	assert.Equal(t, "no ingests recorded\n", buf.String())
}

func TestReadConfigPageSizeOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("directory_path: /drops\npage_size: 16\n"), 0644))

	tests := []struct {
		name     string
		flag     int
		expected int
	}{
		{"flag unset keeps the file value", 0, 16},
		{"flag overrides the file value", 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := readConfig(cfgPath, tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.PageSize)
			assert.Equal(t, "/drops", cfg.DirectoryPath)
		})
	}
}

func TestIngestCommandReadsConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "holiday")
	require.NoError(t, os.MkdirAll(dir, 0755))

	root := NewRootCommand()
	root.SetArgs([]string{"ingest", dir, "--config", filepath.Join(dir, "missing.yaml")})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchCommandPageSizeFlag(t *testing.T) {
	flag := NewWatchCommand().Flags().Lookup("page-size")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}
