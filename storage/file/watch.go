package file

import (
	"os"
	"path/filepath"

	"sbd/gogroup"
	"sbd/log"

	"github.com/fsnotify/fsnotify"
	"github.com/kr/fs"
	"github.com/pkg/errors"
)

var tracer = log.GetTracer("file")

// Watch calls fn with the path of every message stored under root from now on, until g is
// canceled. Directories created later, such as the one of a new modem, are watched too.
// fn runs on the watch goroutine.
func Watch(g gogroup.GoGroup, root string, fn func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	w := &watch{watcher: watcher, fn: fn, seen: make(map[string]bool)}
	if err := w.addTree(root, false); err != nil {
		watcher.Close()
		return err
	}
	// Required to be in a separate go routine according to the FAQ
	g.Go(func(g gogroup.GoGroup) error {
		defer watcher.Close()
		w.run(g)
		return nil
	})
	return nil
}

type watch struct {
	watcher *fsnotify.Watcher
	fn      func(string)
	seen    map[string]bool
}

// addTree watches dir and every directory below it. With report set, messages already in
// the tree are reported; they were written before the watch on their directory existed.
func (w *watch) addTree(dir string, report bool) error {
	walker := fs.Walk(dir)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if os.IsNotExist(err) && report {
				// removed again before we got to it
				continue
			}
			return errors.Wrap(err, "watch")
		}
		path, info := walker.Path(), walker.Stat()
		switch {
		case info.IsDir():
			if err := w.watcher.Add(path); err != nil {
				return errors.Wrapf(err, "watch %v", path)
			}
			tracer.Logf("watching %v", path)
		case report && isMessage(path, info):
			w.report(path)
		}
	}
	return nil
}

func (w *watch) report(path string) {
	if w.seen[path] {
		return
	}
	w.seen[path] = true
	w.fn(path)
}

func (w *watch) run(g gogroup.GoGroup) {
	for {
		select {
		case <-g.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			info, err := os.Lstat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if err := w.addTree(event.Name, true); err != nil {
					log.Error("%v", err)
				}
				continue
			}
			if isMessage(event.Name, info) {
				w.report(filepath.Clean(event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watch: %v", err)
		}
	}
}
