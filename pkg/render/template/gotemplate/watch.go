package gotemplate

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const watchOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watch invalidates the compiled template cache whenever a template file
// under dir changes. onChange, when given, runs after each invalidation with
// the changed path. Watch blocks until ctx is done or the watcher fails.
func (e *Engine) Watch(ctx context.Context, dir string, onChange ...func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gotemplate: create watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("gotemplate: watch %q: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&watchOps == 0 || !e.watches(event.Name) {
				continue
			}
			e.ClearCache()
			name := strings.ReplaceAll(event.Name, "\\", "/")
			for _, fn := range onChange {
				if fn != nil {
					fn(name)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("gotemplate: watcher: %w", err)
		}
	}
}

func (e *Engine) watches(path string) bool {
	if e.tplExt == "" {
		return true
	}
	return strings.HasSuffix(path, e.tplExt)
}
