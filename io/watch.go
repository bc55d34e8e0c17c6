package io

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"shadow-engine/core"
)

// Reload is the result of re-reading a watched settings file.
type Reload struct {
	Settings ShadowSettings
	Err      error
}

// Watch re-loads the settings file at path whenever it is written or
// replaced, and sends each result on the returned channel. The directory is
// watched rather than the file, so editors that save by renaming are seen.
// The channel is closed once ctx is done.
func Watch(ctx context.Context, path string) (<-chan Reload, error) {
	if _, err := formatOf(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to watch settings: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to watch settings: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch settings: %w", err)
	}

	out := make(chan Reload)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				s, err := LoadSettings(abs)
				if err == nil {
					core.Logger().Info("io: settings reloaded", "path", abs, "technique", s.Technique)
				}
				select {
				case out <- Reload{Settings: s, Err: err}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				core.Logger().Warn("io: settings watch error", "path", abs, "err", err)
			}
		}
	}()
	return out, nil
}
