package filetree

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
)

// DefaultPageSize is the directory listing page size used when none is set.
const DefaultPageSize = 64

// Item is a dropped path of an fs.FS that has not been resolved into an
// entry yet. Use FSResolver to resolve it.
type Item struct {
	FS   fs.FS
	Path string
}

// FS returns a drop event whose items are the given paths of fsys, as if
// they had been dragged in. Paths must name a file or directory, not ".".
func FS(fsys fs.FS, roots ...string) Event {
	items := make([]any, 0, len(roots))
	for _, root := range roots {
		items = append(items, Item{FS: fsys, Path: root})
	}
	return Event{DataTransfer: &DataTransfer{Items: items}}
}

// FSResolver resolves Items into file and directory entries.
type FSResolver struct {
	PageSize int
}

func (r FSResolver) Resolve(item any) (any, error) {
	it, ok := item.(Item)
	if !ok {
		return nil, fmt.Errorf("%w: no entry accessor for %T", ErrUnsupported, item)
	}
	info, err := fs.Stat(it.FS, it.Path)
	if err != nil {
		return nil, err
	}
	return newFSEntry(it.FS, it.Path, info.IsDir(), r.PageSize), nil
}

func newFSEntry(fsys fs.FS, name string, dir bool, pageSize int) any {
	if dir {
		return &fsDirectory{fsys: fsys, path: name, pageSize: pageSize}
	}
	return &fsFileEntry{fsys: fsys, path: name}
}

type fsFileEntry struct {
	fsys fs.FS
	path string
}

func (e *fsFileEntry) Name() string { return path.Base(e.path) }

func (e *fsFileEntry) File(ctx context.Context) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := fs.Stat(e.fsys, e.path); err != nil {
		return nil, err
	}
	return &fsFile{fsys: e.fsys, path: e.path}, nil
}

type fsFile struct {
	fsys fs.FS
	path string
}

func (f *fsFile) Name() string { return path.Base(f.path) }

func (f *fsFile) Open() (io.ReadCloser, error) { return f.fsys.Open(f.path) }

// Path is the file's path within its fs.FS.
func (f *fsFile) Path() string { return f.path }

type fsDirectory struct {
	fsys     fs.FS
	path     string
	pageSize int
}

func (d *fsDirectory) Name() string { return path.Base(d.path) }

func (d *fsDirectory) Reader() DirectoryReader { return &fsDirReader{dir: d} }

type fsDirReader struct {
	dir  *fsDirectory
	file fs.ReadDirFile
	done bool
}

func (r *fsDirReader) ReadEntries(ctx context.Context) ([]any, error) {
	if r.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		r.close()
		return nil, err
	}
	if r.file == nil {
		f, err := r.dir.fsys.Open(r.dir.path)
		if err != nil {
			return nil, err
		}
		rd, ok := f.(fs.ReadDirFile)
		if !ok {
			f.Close()
			return nil, fmt.Errorf("%s: not a directory", r.dir.path)
		}
		r.file = rd
	}

	n := r.dir.pageSize
	if n <= 0 {
		n = DefaultPageSize
	}
	list, err := r.file.ReadDir(n)
	if err != nil && err != io.EOF {
		r.close()
		return nil, err
	}
	if len(list) == 0 {
		r.close()
		return nil, nil
	}

	page := make([]any, 0, len(list))
	for _, de := range list {
		page = append(page, newFSEntry(r.dir.fsys, path.Join(r.dir.path, de.Name()), de.IsDir(), r.dir.pageSize))
	}
	return page, nil
}

func (r *fsDirReader) close() {
	r.done = true
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
