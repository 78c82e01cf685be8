package cli

import (
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	. "github.com/stevegt/goadapt"
)

// WatchFile calls onChange with the file's content each time the
// file changes on disk.  Content already present when the watch
// starts is processed once before any event.  Editors tend to
// replace files on save rather than writing in place, so we watch
// the parent directory and filter events by name.  WatchFile returns
// when done is closed; a nil done channel blocks forever.
func WatchFile(path string, onChange func(text string) error, done <-chan struct{}) (err error) {
	defer Return(&err)

	abs, err := filepath.Abs(path)
	Ck(err)

	watcher, err := fsnotify.NewWatcher()
	Ck(err)
	defer watcher.Close()
	err = watcher.Add(filepath.Dir(abs))
	Ck(err)

	// skip events that didn't change the content
	var lastSum [sha256.Size]byte
	process := func() error {
		buf, err := os.ReadFile(abs)
		if err != nil {
			// the file may be mid-replace; wait for the next event
			Debug("watch read: %v", err)
			return nil
		}
		sum := sha256.Sum256(buf)
		if sum == lastSum {
			return nil
		}
		lastSum = sum
		return onChange(string(buf))
	}

	err = process()
	Ck(err)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			Debug("watch event: %v", ev)
			err = process()
			Ck(err)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			Ck(werr)
		case <-done:
			return nil
		}
	}
}
