package dicomdir

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"ikh/dicomdir/internal/filetree"
)

// IndexName is the fixed name of the index document and its manifest id.
const IndexName = "DICOMDIR"

// Decoder turns the bytes of an index document into an AttributeStore.
type Decoder func(r io.Reader) (AttributeStore, error)

// ManifestEntry pairs a manifest id with the dropped file it names.
type ManifestEntry struct {
	ID   string
	File filetree.File
}

// Dicomdir is a decoded DICOMDIR with its files resolved.
type Dicomdir struct {
	Hierarchy
	// Files is the DICOMDIR itself followed by one entry per image, in
	// image order.
	Files []ManifestEntry
}

// FromFileTree decodes index and resolves every image it references against
// filesByName, the traversal of the drop. prefix is the directory of index
// within the drop, e.g. "cd/". Paths are matched case-insensitively.
func FromFileTree(filesByName map[string]filetree.File, index filetree.File, prefix string, decode Decoder) (*Dicomdir, error) {
	if index == nil {
		return nil, newError(Malformed, errors.New("no DICOMDIR in upload"))
	}
	if decode == nil {
		return nil, errors.New("dicomdir: nil decoder")
	}

	store, err := decodeIndex(index, decode)
	if err != nil {
		return nil, err
	}
	h, err := BuildHierarchy(store)
	if err != nil {
		return nil, err
	}

	byCleanName := lowerKeys(filesByName)
	files := make([]ManifestEntry, 0, len(h.Images)+1)
	files = append(files, ManifestEntry{ID: IndexName, File: index})
	for _, image := range h.Images {
		id := strings.ReplaceAll(image.ID, `\`, "/")
		f, ok := byCleanName[strings.ToLower(prefix+id)]
		if !ok || f == nil {
			return nil, newError(Corrupt, fmt.Errorf("referenced file %q not found", prefix+id))
		}
		files = append(files, ManifestEntry{ID: id, File: f})
	}

	return &Dicomdir{Hierarchy: *h, Files: files}, nil
}

func decodeIndex(index filetree.File, decode Decoder) (AttributeStore, error) {
	r, err := index.Open()
	if err != nil {
		return nil, newError(Corrupt, fmt.Errorf("opening %s: %w", index.Name(), err))
	}
	defer r.Close()

	store, err := decode(r)
	if err != nil {
		return nil, newError(Corrupt, fmt.Errorf("decoding %s: %w", index.Name(), err))
	}
	return store, nil
}

// lowerKeys indexes files by lower-cased path. When two paths differ only
// in case, the lexicographically smaller one wins.
func lowerKeys(files map[string]filetree.File) map[string]filetree.File {
	out := make(map[string]filetree.File, len(files))
	owner := make(map[string]string, len(files))
	for name, f := range files {
		key := strings.ToLower(name)
		if prev, ok := owner[key]; ok && prev < name {
			continue
		}
		owner[key] = name
		out[key] = f
	}
	return out
}
