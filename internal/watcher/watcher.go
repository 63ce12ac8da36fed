package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"ikh/dicomdir/internal/api"
	"ikh/dicomdir/internal/config"
	"ikh/dicomdir/internal/dicomdir"
	"ikh/dicomdir/internal/ingest"
	"ikh/dicomdir/internal/models"
	"ikh/dicomdir/internal/store"
)

// LockName is the lock file created in the watched directory.
const LockName = ".dicomdir.lock"

// Drop is a top-level subdirectory of the watched directory.
type Drop struct {
	Path         string
	LastModified time.Time
	// Done is set once the drop was ingested or failed at LastModified.
	Done bool
}

type Watcher struct {
	Config       *config.Config
	Drops        map[string]*Drop
	Timeout      time.Duration
	PollInterval time.Duration
	Store        *store.Store
	Logger       *log.Logger
	// Decode defaults to dcm.Decode.
	Decode dicomdir.Decoder
	// Ingested receives the id of every successful ingest when non-nil.
	Ingested chan<- string

	Mutex      sync.Mutex
	DropTimers map[string]*time.Timer

	ctx      context.Context
	lock     *flock.Flock
	done     chan struct{}
	stopped  bool
	inflight sync.WaitGroup
}

func NewWatcher(config *config.Config, ledger *store.Store, logger *log.Logger) (*Watcher, error) {
	if config.DirectoryPath == "" {
		return nil, errors.New("directory_path is required")
	}
	return &Watcher{
		Config:       config,
		Drops:        make(map[string]*Drop),
		Timeout:      time.Duration(config.Timeout) * time.Second,
		PollInterval: time.Duration(config.PollInterval) * time.Second,
		Store:        ledger,
		Logger:       logger,
		DropTimers:   make(map[string]*time.Timer),
		ctx:          context.Background(),
		lock:         flock.New(filepath.Join(config.DirectoryPath, LockName)),
	}, nil
}

// Start takes the directory lock and polls until ctx is done. Use Wait to
// block until polling and in-flight ingests have finished.
func (w *Watcher) Start(ctx context.Context) error {
	locked, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", w.Config.DirectoryPath, err)
	}
	if !locked {
		return fmt.Errorf("%s is already watched by another process", w.Config.DirectoryPath)
	}
	w.ctx = ctx
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		defer w.stop()
		ticker := time.NewTicker(w.PollInterval)
		defer ticker.Stop()
		for {
			w.CheckDirectory(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Wait blocks until a started watcher has stopped.
func (w *Watcher) Wait() {
	if w.done != nil {
		<-w.done
	}
}

func (w *Watcher) stop() {
	w.Mutex.Lock()
	w.stopped = true
	for _, timer := range w.DropTimers {
		timer.Stop()
	}
	w.Mutex.Unlock()
	w.inflight.Wait()

	if err := w.lock.Unlock(); err != nil {
		w.Logger.Warn("releasing lock", "error", err)
	}
}

// CheckDirectory scans the watched directory and arms a settle timer for
// every drop that is new or has changed since the last scan.
func (w *Watcher) CheckDirectory(ctx context.Context) {
	w.Logger.Debug("checking directory", "path", w.Config.DirectoryPath)

	entries, err := os.ReadDir(w.Config.DirectoryPath)
	if err != nil {
		w.Logger.Error("reading directory", "error", err)
		return
	}

	dropChan := make(chan string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dropChan <- filepath.Join(w.Config.DirectoryPath, entry.Name())
		}
	}
	close(dropChan)

	// Scan drops with a pool of workers sized on the number of CPU cores
	var wg sync.WaitGroup
	numWorkers := runtime.NumCPU() * 2
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dropPath := range dropChan {
				if ctx.Err() != nil {
					return
				}
				modified, err := newestModTime(dropPath)
				if err != nil {
					w.Logger.Error("scanning drop", "path", dropPath, "error", err)
					continue
				}
				w.ProcessDrop(dropPath, modified)
			}
		}()
	}
	wg.Wait()
}

// ProcessDrop records the newest modification time of a drop and restarts
// its settle timer when it changed.
func (w *Watcher) ProcessDrop(dropPath string, lastModified time.Time) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()

	drop, ok := w.Drops[dropPath]
	if ok && drop.LastModified.Equal(lastModified) {
		return
	}
	if !ok {
		drop = &Drop{Path: dropPath}
		w.Drops[dropPath] = drop
		w.Logger.Info("new drop", "path", dropPath)
	}
	drop.LastModified = lastModified
	drop.Done = false

	if timer, ok := w.DropTimers[dropPath]; ok {
		timer.Reset(w.Timeout)
		return
	}
	w.DropTimers[dropPath] = time.AfterFunc(w.Timeout, func() {
		w.CheckDropReady(dropPath)
	})
}

// CheckDropReady ingests a drop that has settled.
func (w *Watcher) CheckDropReady(dropPath string) {
	w.Mutex.Lock()
	drop, ok := w.Drops[dropPath]
	if w.stopped || !ok || drop.Done {
		w.Mutex.Unlock()
		return
	}
	drop.Done = true
	w.inflight.Add(1)
	w.Mutex.Unlock()
	defer w.inflight.Done()

	if err := w.IngestDrop(w.ctx, dropPath); err != nil {
		var de *dicomdir.Error
		if errors.As(err, &de) {
			w.Logger.Error("ingest failed", "path", dropPath, "kind", de.Kind, "error", err)
		} else {
			w.Logger.Error("ingest failed", "path", dropPath, "error", err)
		}
	}
}

// IngestDrop runs the pipeline on one drop, records it in the ledger and
// notifies the API. Drops already in the ledger are skipped.
func (w *Watcher) IngestDrop(ctx context.Context, dropPath string) error {
	seen, err := w.Store.Seen(ctx, dropPath)
	if err != nil {
		return err
	}
	if seen {
		w.Logger.Debug("drop already ingested", "path", dropPath)
		return nil
	}

	d, err := ingest.Dir(ctx, dropPath, ingest.Options{PageSize: w.Config.PageSize, Decode: w.Decode})
	if err != nil {
		return err
	}

	record := models.Ingest{
		ID:          uuid.NewString(),
		Source:      dropPath,
		SeriesCount: len(d.Series),
		ImageCount:  len(d.Images),
		CreatedAt:   time.Now(),
	}
	if d.Study != nil {
		record.StudyDate = d.Study.Date
	}
	if err := w.Store.Record(ctx, record); err != nil {
		return err
	}
	w.Logger.Info("drop ingested", "path", dropPath, "id", record.ID, "series", record.SeriesCount, "images", record.ImageCount)

	if w.Config.ApiUrl != "" {
		payload := api.NewIngestPayload(record.ID, dropPath, d)
		if err := api.NotifyIngest(ctx, w.Config.ApiUrl, payload); err != nil {
			return fmt.Errorf("notifying %s: %w", w.Config.ApiUrl, err)
		}
	}
	if w.Ingested != nil {
		select {
		case w.Ingested <- record.ID:
		case <-ctx.Done():
		}
	}
	return nil
}

func newestModTime(root string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}
