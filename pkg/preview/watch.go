package preview

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/source"
)

// Watch reloads the template whenever its file is written. It returns
// once the watch is established and stops when ctx is cancelled. Only
// local files can be watched.
func (s *Server) Watch(ctx context.Context) error {
	loc, err := source.ParseLocation(s.cfg.Template)
	if err != nil {
		return err
	}
	if loc.Kind != source.KindFile {
		return errors.New("P300").WithDetailf("cannot watch %s", loc)
	}
	target, err := filepath.Abs(loc.Path)
	if err != nil {
		return errors.New("P300").Wrap(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("P300").Wrap(err)
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return errors.New("P300").Wrap(err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				s.reload(ctx)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watch error", "error", err)
			}
		}
	}()

	s.logger.Info("watching template", "path", target)
	return nil
}

func (s *Server) reload(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.logger.Error("reload failed", "code", errors.CodeOf(err), "error", err)
		s.hub.broadcast(ServerMessage{Type: TypeError, Error: err.Error()})
	}
}
