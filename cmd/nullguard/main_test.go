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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/nullguard/pkg/gen"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	flags := newWatchCmd().Flags()
	flags.AddFlagSet(newRootCmd().PersistentFlags())
	if err := flags.Parse(args); err != nil {
		t.Fatal(err)
	}
	return flags
}

func TestLoadOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a := assert.New(t)
		dir := t.TempDir()

		opts, err := loadOptions(parseFlags(t, "--dir", dir), nil)
		if !a.NoError(err) {
			return
		}
		a.Equal(dir, opts.Dir)
		a.Equal(gen.DefaultOutfile, opts.Outfile)
		a.Equal([]string{"."}, opts.Packages)
		a.Equal(250*time.Millisecond, opts.Debounce)
		a.Empty(opts.BuildFlags)
		a.False(opts.DryRun)
		a.False(opts.Verbose)
	})

	t.Run("config file", func(t *testing.T) {
		a := assert.New(t)
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{
			".nullguard.yaml": "packages: [./...]\nout: guard_gen.go\nbuild_flags: [-tags=integration]\ndebounce: 1s\n",
		})

		opts, err := loadOptions(parseFlags(t, "--dir", dir), nil)
		if !a.NoError(err) {
			return
		}
		a.Equal([]string{"./..."}, opts.Packages)
		a.Equal("guard_gen.go", opts.Outfile)
		a.Equal([]string{"-tags=integration"}, opts.BuildFlags)
		a.Equal(time.Second, opts.Debounce)

		// The environment beats the file, and flags beat both.
		t.Setenv("NULLGUARD_GEN_OUT", "env_gen.go")
		opts, err = loadOptions(parseFlags(t, "--dir", dir), nil)
		if a.NoError(err) {
			a.Equal("env_gen.go", opts.Outfile)
		}
		opts, err = loadOptions(parseFlags(t, "--dir", dir, "-o", "flag_gen.go", "-v"), []string{"./pkg"})
		if a.NoError(err) {
			a.Equal("flag_gen.go", opts.Outfile)
			a.Equal([]string{"./pkg"}, opts.Packages)
			a.True(opts.Verbose)
		}
	})

	t.Run("bad config", func(t *testing.T) {
		a := assert.New(t)
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{".nullguard.yaml": "debounce: -1s\n"})

		_, err := loadOptions(parseFlags(t, "--dir", dir), nil)
		a.EqualError(err, "debounce must be positive, got -1s")

		writeFiles(t, dir, map[string]string{".nullguard.yaml": "packages: [\n"})
		_, err = loadOptions(parseFlags(t, "--dir", dir), nil)
		a.Error(err)
	})
}

// stale creates a module whose generated file is no longer needed.
func stale(t *testing.T) string {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"go.mod":           "module example.com/stale\n\ngo 1.21\n",
		"stale.go":         "package stale\n",
		gen.DefaultOutfile: gen.Header + "\n\npackage stale\n",
	})
	return dir
}

func TestDryRun(t *testing.T) {
	a := assert.New(t)
	dir := stale(t)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--dir", dir, "--dry_run", "."})
	a.NoError(root.Execute())

	a.Equal("would remove "+gen.DefaultOutfile+"\n", out.String())
	_, err := os.Stat(filepath.Join(dir, gen.DefaultOutfile))
	a.NoError(err)

	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--dir", dir, "."})
	a.NoError(root.Execute())
	_, err = os.Stat(filepath.Join(dir, gen.DefaultOutfile))
	a.True(os.IsNotExist(err))
}

func TestRelevant(t *testing.T) {
	a := assert.New(t)
	w := &watcher{outfile: gen.DefaultOutfile}

	a.True(w.relevant(fsnotify.Event{Name: "/src/store.go", Op: fsnotify.Write}))
	a.True(w.relevant(fsnotify.Event{Name: "/src/store.go", Op: fsnotify.Remove}))
	a.True(w.relevant(fsnotify.Event{Name: "/src/" + gen.DeclsFile, Op: fsnotify.Create}))
	a.True(w.relevant(fsnotify.Event{Name: "/src/.nullguard.yaml", Op: fsnotify.Write}))
	a.False(w.relevant(fsnotify.Event{Name: "/src/store.go", Op: fsnotify.Chmod}))
	a.False(w.relevant(fsnotify.Event{Name: "/src/" + gen.DefaultOutfile, Op: fsnotify.Write}))
	a.False(w.relevant(fsnotify.Event{Name: "/src/README.md", Op: fsnotify.Write}))
}

func TestWatch(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()
	a.NoError(os.Mkdir(filepath.Join(dir, "testdata"), 0755))

	runs := make(chan struct{}, 16)
	w := &watcher{
		debounce: 10 * time.Millisecond,
		dir:      dir,
		logger:   zaptest.NewLogger(t),
		outfile:  gen.DefaultOutfile,
		run: func(context.Context) error {
			runs <- struct{}{}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.watch(ctx) }()

	wait := func() bool {
		select {
		case <-runs:
			return true
		case <-time.After(10 * time.Second):
			return false
		}
	}
	a.True(wait(), "initial run")

	writeFiles(t, dir, map[string]string{"store.go": "package store\n"})
	a.True(wait(), "run after change")

	cancel()
	select {
	case err := <-done:
		a.NoError(err)
	case <-time.After(10 * time.Second):
		a.Fail("watch did not stop")
	}
}
