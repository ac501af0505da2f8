package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/conceptc/internal/loader"
)

// watchDebounce is how long the watcher waits for changes to settle.
const watchDebounce = 100 * time.Millisecond

// Watch builds the project, then rebuilds whenever a script, macro file or
// the types file changes, calling onBuild after each build. It returns when
// ctx is done.
func (e *Engine) Watch(ctx context.Context, opts BuildOptions, onBuild func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDir(watcher, e.cfg.DSLDir); err != nil {
		return err
	}
	if e.cfg.MacrosDir != "" {
		if err := watchDir(watcher, e.cfg.MacrosDir); err != nil {
			return err
		}
	}
	if e.cfg.TypesFile != "" {
		if dir := filepath.Dir(e.cfg.TypesFile); dirExists(dir) {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
	}

	onBuild(e.Build(ctx, opts))

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		reload bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			var isScript, isPlugin bool
			if event.Op&fsnotify.Create != 0 && dirExists(event.Name) {
				// A directory moved or copied in arrives as a single event.
				if hidden(event.Name) || !e.watched(event.Name) {
					continue
				}
				if err := watchDir(watcher, event.Name); err != nil {
					e.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
				}
				isScript, isPlugin = treeContents(event.Name)
			} else {
				isScript = filepath.Ext(event.Name) == loader.Ext
				isPlugin = filepath.Ext(event.Name) == ".star" || event.Name == e.cfg.TypesFile
			}
			if !isScript && !isPlugin {
				continue
			}
			reload = reload || isPlugin
			e.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watchDebounce)
			fire = timer.C

		case <-fire:
			fire = nil
			if reload {
				reload = false
				if err := e.Reload(); err != nil {
					onBuild(nil, err)
					continue
				}
			}
			onBuild(e.Build(ctx, opts))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)
		}
	}
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	if !dirExists(dir) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// watched reports whether path lies in the script or macro directory.
func (e *Engine) watched(path string) bool {
	for _, dir := range []string{e.cfg.DSLDir, e.cfg.MacrosDir} {
		if dir == "" {
			continue
		}
		if rel, err := filepath.Rel(dir, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// treeContents reports whether a directory tree holds scripts or macro
// files, skipping hidden entries like LoadDir does.
func treeContents(dir string) (scripts, macros bool) {
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != dir && hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case loader.Ext:
			scripts = true
		case ".star":
			macros = true
		}
		return nil
	})
	return scripts, macros
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
