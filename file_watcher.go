package xform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/capitan"
)

// FileWatcher emits the contents of a file each time they change.
//
// It watches the file's directory rather than the file itself, so editors
// and deploy tools that replace the file by rename keep being observed.
// Events that leave the contents unchanged are not emitted.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a FileWatcher for path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: filepath.Clean(path)}
}

// Watch emits the current contents immediately, then every distinct new
// version until ctx is done. The file must exist when Watch is called.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	initial, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	out := make(chan []byte)
	go w.run(ctx, fsw, initial, out)
	return out, nil
}

func (w *FileWatcher) run(ctx context.Context, fsw *fsnotify.Watcher, last []byte, out chan<- []byte) {
	defer close(out)
	defer fsw.Close()

	send := func(data []byte) bool {
		select {
		case out <- data:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !send(last) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(w.path)
			if err != nil || bytes.Equal(data, last) {
				continue
			}
			last = data
			if !send(data) {
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			capitan.Emit(ctx, WatcherFailed,
				KeyPath.Field(w.path),
				KeyError.Field(err.Error()),
			)
		}
	}
}
