package tuning

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes and hands every valid result to
// apply. Invalid files go to onErr and the previous tuning stays in effect.
// The directory is watched so editors that replace the file are covered.
func Watch(ctx context.Context, path string, apply func(Tuning), onErr func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !shouldReload(ev, abs) {
				continue
			}
			t, err := Load(abs)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			apply(t)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}

// shouldReload keeps writes to and creations of the watched file. A rename
// moves the file away; the replacement arrives as its own Create.
func shouldReload(ev fsnotify.Event, abs string) bool {
	if filepath.Clean(ev.Name) != abs {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
