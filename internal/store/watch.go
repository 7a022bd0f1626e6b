package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch reports the arcana of every link file changed on disk, for example
// by a second editor or a text editor. Call the returned stop function to
// clean up.
func (s *FileStore) Watch(logger *slog.Logger, onChange func(arcana string)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("link watcher: %w", err)
	}
	dir := s.LinkDir()
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("link watcher add %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove)) {
					continue
				}
				arcana, ok := arcanaOf(ev.Name)
				if !ok {
					continue
				}
				logger.Debug("link changed on disk", "arcana", arcana, "op", ev.Op.String())
				onChange(arcana)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("link watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// arcanaOf maps data/<arcana>_link.json to arcana. Lock and temp files are
// ignored.
func arcanaOf(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, linkSuffix) {
		return "", false
	}
	arcana := strings.TrimSuffix(base, linkSuffix)
	return arcana, arcana != ""
}
