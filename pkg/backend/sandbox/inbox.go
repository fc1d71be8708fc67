package sandbox

import (
	"context"
	"path"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
)

// inboxWatcher turns files created in the inbox into open-URL events.
type inboxWatcher struct {
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func watchInbox(ctx context.Context, hostDir, containerDir string, announce func(string), log logr.Logger) (*inboxWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(hostDir); err != nil {
		watcher.Close()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &inboxWatcher{watcher: watcher, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) {
					continue
				}
				p := path.Join(containerDir, filepath.Base(event.Name))
				log.V(1).Info("inbox file", "path", p)
				announce(FileURL(p))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(err, "inbox watcher")
			}
		}
	}()
	return w, nil
}

// Close stops the watcher and waits for its goroutine.
func (w *inboxWatcher) Close() {
	w.once.Do(func() {
		w.cancel()
		w.watcher.Close()
		<-w.done
	})
}

func localDir(root, containerDir string) string {
	return filepath.Join(root, filepath.FromSlash(containerDir))
}
