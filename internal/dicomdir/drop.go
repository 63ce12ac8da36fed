package dicomdir

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ikh/dicomdir/internal/filetree"
)

// DropOptions configures HandleDrop.
type DropOptions struct {
	// Resolver resolves platform drop items into entries.
	Resolver filetree.Resolver
	// Decode decodes the DICOMDIR bytes.
	Decode Decoder
}

// HandleDrop traverses a dropped directory, finds its DICOMDIR and resolves
// every file it references. When several DICOMDIRs were dropped the
// shallowest one wins, ties broken by path.
func HandleDrop(ctx context.Context, ev filetree.Event, opts DropOptions) (*Dicomdir, error) {
	var (
		index  filetree.File
		prefix string
	)
	filesByName, err := filetree.Parse(ctx, ev, filetree.Options{
		Resolver: opts.Resolver,
		HandleFile: func(f filetree.File, path string) {
			if !strings.EqualFold(f.Name(), IndexName) {
				return
			}
			if index == nil || shallower(path, prefix) {
				index, prefix = f, path
			}
		},
	})
	if err != nil {
		if errors.Is(err, filetree.ErrUnsupported) {
			return nil, newError(Unsupported, err)
		}
		return nil, fmt.Errorf("traversing upload: %w", err)
	}
	if index == nil {
		return nil, newError(Malformed, errors.New("no DICOMDIR in upload"))
	}

	return FromFileTree(filesByName, index, prefix, opts.Decode)
}

func shallower(a, b string) bool {
	da, db := strings.Count(a, "/"), strings.Count(b, "/")
	if da != db {
		return da < db
	}
	return a < b
}
