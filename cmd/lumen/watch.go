package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 100 * time.Millisecond

// watcher batches filesystem events and reports the distinct changed paths
// once no event arrived for debounceInterval
type watcher struct {
	fs       *fsnotify.Watcher
	relevant func(path string) bool
}

func newWatcher(relevant func(path string) bool) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &watcher{fs: fw, relevant: relevant}, nil
}

// addTree watches dir and its subdirectories, skipping hidden directories,
// vendor and node_modules
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// add watches a single directory
func (w *watcher) add(dir string) error {
	return w.fs.Add(dir)
}

// run delivers batches to onChange until ctx is done or the watcher closes
func (w *watcher) run(ctx context.Context, onChange func(paths []string)) {
	debounce := time.NewTimer(debounceInterval)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	pending := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			debounce.Reset(debounceInterval)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]struct{})
			onChange(paths)
		}
	}
}

func (w *watcher) Close() error {
	return w.fs.Close()
}
