// Copyright 2019 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package main

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/nullguard/pkg/gen"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [packages]",
		Short: "Regenerate shims whenever sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags(), args)
			if err != nil {
				return err
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			w := &watcher{
				debounce: opts.Debounce,
				dir:      opts.Dir,
				logger:   logger,
				outfile:  opts.Outfile,
				run: func(ctx context.Context) error {
					return run(ctx, out, opts.generator(out, logger))
				},
			}
			return w.watch(ctx)
		},
	}
	cmd.Flags().Duration(keyDebounce, 250*time.Millisecond, "How long to wait for changes to settle")
	return cmd
}

// A watcher reruns the generator when relevant files under dir change.
type watcher struct {
	debounce time.Duration
	dir      string
	logger   *zap.Logger
	outfile  string
	run      func(context.Context) error
}

// watch runs once, then again after every burst of changes, until the
// context is cancelled. Generator failures are logged, not returned, so
// that the user can fix the source and carry on.
func (w *watcher) watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "could not create watcher")
	}
	defer func() { _ = fw.Close() }()

	if err := w.addDirs(fw, w.dir); err != nil {
		return err
	}
	w.once(ctx)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addDirs(fw, ev.Name); err != nil {
						w.logger.Warn("could not watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("change", zap.Stringer("event", ev))
			settle = time.After(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))

		case <-settle:
			settle = nil
			w.once(ctx)
		}
	}
}

func (w *watcher) once(ctx context.Context) {
	if err := w.run(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("generation failed", zap.Error(err))
	}
}

// relevant filters out events which cannot affect the generated code,
// including the writes of the generator itself.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	switch {
	case base == w.outfile:
		return false
	case base == gen.DeclsFile, base == configFileName+"."+configFileType:
		return true
	default:
		return strings.HasSuffix(base, ".go")
	}
}

// addDirs watches root and every directory beneath it, skipping those
// which the go tool ignores.
func (w *watcher) addDirs(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root &&
			(strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		return errors.Wrap(fw.Add(path), path)
	})
}
