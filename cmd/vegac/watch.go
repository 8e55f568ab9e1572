package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// runWatch compiles sourcePath once, then recompiles every time a .vega
// file in its directory (where relative imports resolve) is written or
// created, until the process is interrupted. It returns a non-nil error
// only when the watcher cannot be set up, and nil if the watcher's
// channels close.
func runWatch(sourcePath string, opts compileOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(sourcePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	compileAndReport(sourcePath, opts, os.Stdout, os.Stderr)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".vega" {
				continue
			}
			fmt.Fprintf(os.Stderr, "--- %s changed, recompiling ---\n", event.Name)
			compileAndReport(sourcePath, opts, os.Stdout, os.Stderr)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		}
	}
}

func compileAndReport(sourcePath string, opts compileOptions, out, errOut io.Writer) {
	if compileOnce(sourcePath, opts, out, errOut) {
		fmt.Fprintf(errOut, "ok\n")
	}
}
