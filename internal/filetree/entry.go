// Package filetree walks a dropped file collection and flattens it into a
// map from slash-separated relative path to leaf file handle.
//
// A drop is heterogeneous: it may carry a flat file list, a list of
// entries, or directories that have to be listed page by page. Entries are
// classified up front into one of four shapes (leaf, container, collection,
// unresolved) and unresolved values are turned into entries by a platform
// Resolver before being dispatched again.
package filetree

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupported is returned when an item cannot be turned into an entry
// because no Resolver is available for it.
var ErrUnsupported = errors.New("incompatible platform")

// File is a byte-backed leaf handle.
type File interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileEntry is a leaf entry whose handle is materialized asynchronously.
type FileEntry interface {
	Name() string
	File(ctx context.Context) (File, error)
}

// DirectoryEntry is a container entry listed through a paged reader.
type DirectoryEntry interface {
	Name() string
	Reader() DirectoryReader
}

// DirectoryReader returns one page of child entries per call. A page with
// zero entries means the directory is exhausted.
type DirectoryReader interface {
	ReadEntries(ctx context.Context) ([]any, error)
}

// Collection is an indexable list of entries.
type Collection interface {
	Len() int
	At(i int) any
}

// Resolver turns a platform item that is not itself an entry into one.
type Resolver interface {
	Resolve(item any) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(item any) (any, error)

func (f ResolverFunc) Resolve(item any) (any, error) { return f(item) }

// Kind is the shape of a drop entry.
type Kind int

const (
	KindUnresolved Kind = iota
	KindLeaf
	KindContainer
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindContainer:
		return "container"
	case KindCollection:
		return "collection"
	}
	return "unresolved"
}

// Classify reports the shape of item. Leaf wins over container when a
// value implements both.
func Classify(item any) Kind {
	switch item.(type) {
	case FileEntry:
		return KindLeaf
	case DirectoryEntry:
		return KindContainer
	case Collection, []any:
		return KindCollection
	}
	return KindUnresolved
}

func members(item any) []any {
	switch c := item.(type) {
	case []any:
		return c
	case Collection:
		out := make([]any, c.Len())
		for i := range out {
			out[i] = c.At(i)
		}
		return out
	}
	return nil
}
