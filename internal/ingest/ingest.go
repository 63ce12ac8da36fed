// Package ingest runs the drop pipeline against a directory on disk.
package ingest

import (
	"context"
	"os"
	"path/filepath"

	"ikh/dicomdir/internal/dcm"
	"ikh/dicomdir/internal/dicomdir"
	"ikh/dicomdir/internal/filetree"
)

type Options struct {
	PageSize int
	// Decode defaults to dcm.Decode.
	Decode dicomdir.Decoder
}

// Dir ingests the directory at path as if it had been dropped: manifest
// paths are relative to its parent, so the directory name is their first
// element.
func Dir(ctx context.Context, path string, opts Options) (*dicomdir.Dicomdir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	decode := opts.Decode
	if decode == nil {
		decode = dcm.Decode
	}

	ev := filetree.FS(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
	return dicomdir.HandleDrop(ctx, ev, dicomdir.DropOptions{
		Resolver: filetree.FSResolver{PageSize: opts.PageSize},
		Decode:   decode,
	})
}
