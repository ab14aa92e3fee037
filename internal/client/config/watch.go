package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/fieldreport/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with the decoded file each time path is written or
// replaced, until ctx is done. Revisions that fail to decode are logged and
// skipped. The parent directory is watched so editors that save by rename
// are followed too.
func Watch(ctx context.Context, path string, log logging.Logger, onChange func(*FileConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", target, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fc, err := ReadFile(target)
			if err != nil {
				log.Warn(ctx, "config reload skipped", "path", target, "error", err)
				continue
			}
			log.Info(ctx, "config reloaded", "path", target)
			onChange(fc)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn(ctx, "config watcher error", "error", err)
		}
	}
}
