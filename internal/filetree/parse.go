package filetree

import (
	"context"
	"fmt"
)

// Event is a drop or selection event. Only one of its sources is used, in
// this order: DataTransfer items, DataTransfer files, Target files.
type Event struct {
	DataTransfer *DataTransfer
	Target       *Target
}

// DataTransfer carries what was dragged.
type DataTransfer struct {
	Items []any
	Files []File
}

// Target is a non-drag input such as a file picker.
type Target struct {
	Files []File
}

// Options configures Parse.
type Options struct {
	// HandleFile is called once per leaf with the directory path it was
	// found under. Calls are serialized.
	HandleFile func(f File, path string)

	// Resolver turns unresolved items into entries. Without one, an
	// unresolved item fails the traversal with ErrUnsupported.
	Resolver Resolver
}

// Parse walks ev and returns every leaf keyed by its path relative to the
// drop, e.g. "documents/report.docx". Either the whole tree is returned or
// an error is.
func Parse(ctx context.Context, ev Event, opts Options) (map[string]File, error) {
	var items []any
	switch {
	case ev.DataTransfer != nil && len(ev.DataTransfer.Items) > 0:
		items = ev.DataTransfer.Items
	case ev.DataTransfer != nil:
		return fromFileList(ev.DataTransfer.Files, opts), nil
	case ev.Target != nil && ev.Target.Files != nil:
		return fromFileList(ev.Target.Files, opts), nil
	default:
		return map[string]File{}, nil
	}

	walkCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	w := &walker{
		ctx:   walkCtx,
		join:  newJoin(cancel),
		opts:  opts,
		files: make(map[string]File),
	}
	w.walk(items)

	if err := w.join.wait(ctx); err != nil {
		return nil, err
	}
	return w.files, nil
}

func fromFileList(list []File, opts Options) map[string]File {
	files := make(map[string]File, len(list))
	for _, f := range list {
		if f == nil {
			continue
		}
		if opts.HandleFile != nil {
			opts.HandleFile(f, "")
		}
		files[f.Name()] = f
	}
	return files
}

type walker struct {
	ctx   context.Context
	join  *join
	opts  Options
	files map[string]File
}

// walk dispatches the root items. The dispatch itself holds one unit of
// work so the join cannot fire before every root has been registered, and
// fires synchronously when nothing asynchronous was started.
func (w *walker) walk(items []any) {
	w.join.start()
	err := w.traverse(items, "")
	w.join.finish(err, nil)
}

func (w *walker) traverse(item any, path string) error {
	if item == nil {
		return nil
	}
	switch Classify(item) {
	case KindLeaf:
		w.readFile(item.(FileEntry), path)
	case KindContainer:
		w.readDirectory(item.(DirectoryEntry), path)
	case KindCollection:
		for _, child := range members(item) {
			if err := w.traverse(child, path); err != nil {
				return err
			}
		}
	default:
		if w.opts.Resolver == nil {
			return fmt.Errorf("%w: no entry accessor for %T", ErrUnsupported, item)
		}
		entry, err := w.opts.Resolver.Resolve(item)
		if err != nil {
			return err
		}
		if entry != nil && Classify(entry) == KindUnresolved {
			return fmt.Errorf("%w: %T resolved to %T", ErrUnsupported, item, entry)
		}
		return w.traverse(entry, path)
	}
	return nil
}

func (w *walker) readFile(e FileEntry, path string) {
	w.join.start()
	go func() {
		f, err := e.File(w.ctx)
		if err != nil {
			w.join.finish(fmt.Errorf("reading %s%s: %w", path, e.Name(), err), nil)
			return
		}
		w.join.finish(nil, func() {
			w.files[path+f.Name()] = f
			if w.opts.HandleFile != nil {
				w.opts.HandleFile(f, path)
			}
		})
	}()
}

func (w *walker) readDirectory(e DirectoryEntry, path string) {
	w.join.start()
	r := e.Reader()
	prefix := path + e.Name() + "/"
	go func() {
		for {
			if err := context.Cause(w.ctx); err != nil {
				w.join.finish(err, nil)
				return
			}
			entries, err := r.ReadEntries(w.ctx)
			if err != nil {
				w.join.finish(fmt.Errorf("listing %s: %w", prefix, err), nil)
				return
			}
			if len(entries) == 0 {
				w.join.finish(nil, nil)
				return
			}
			for _, child := range entries {
				if err := w.traverse(child, prefix); err != nil {
					w.join.finish(err, nil)
					return
				}
			}
		}
	}()
}
