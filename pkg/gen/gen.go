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

// Package gen generates the shims which give guarded interfaces their
// method sets, along with the declarations that describe their
// contracts.
//
// For every package, the generator collects the interfaces which carry
// the nullguard:contract directive, plus any listed in the package's
// nullguard.yaml file, and writes a single file containing:
//   - a contract.Declaration per interface, built from the directives;
//   - a shim type per interface which forwards every call to an
//     rt.Invoker;
//   - an init function which registers both with rt.Register.
package gen

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/nullguard/pkg/util"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// DefaultOutfile is the name of generated files, unless overridden.
const DefaultOutfile = "nullguard_gen.go"

// Generator produces shims for the contract interfaces found in a set
// of packages.
type Generator struct {
	// Additional flags to pass to the build system.
	BuildFlags []string
	// Allows the working directory to be overridden.
	Dir string
	// If set, generated files are handed to Emit rather than written.
	// A nil src means the file should be removed. Emit may be called
	// from several goroutines at once.
	Emit func(path string, src []byte) error
	// An optional Logger to receive diagnostic messages.
	Logger *zap.Logger
	// The name of the generated file within each package directory.
	Outfile string
	// The package patterns to generate shims for.
	Packages []string

	mu struct {
		sync.Mutex
		results Results
	}
}

// Execute loads the packages, generates one file for each package which
// declares contracts, and removes stale generated files from those which
// no longer do. Problems with directives are returned as Results, in
// which case an error is returned as well and the affected packages are
// left untouched.
func (g *Generator) Execute(ctx context.Context) (Results, error) {
	if len(g.Packages) == 0 {
		return nil, errors.New("no packages specified")
	}
	if g.Outfile == "" {
		g.Outfile = DefaultOutfile
	}
	if filepath.Base(g.Outfile) != g.Outfile {
		return nil, errors.Errorf("the output file name %q must not contain a directory", g.Outfile)
	}
	if g.Logger == nil {
		g.Logger = zap.NewNop()
	}
	absDir, err := filepath.Abs(g.Dir)
	if err != nil {
		return nil, err
	}
	g.Dir = absDir

	// Load the source
	cfg := &packages.Config{
		BuildFlags: g.BuildFlags,
		Context:    ctx,
		Dir:        g.Dir,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
			packages.NeedTypes | packages.NeedTypesInfo | packages.NeedImports | packages.NeedDeps,
	}
	pkgs, err := packages.Load(cfg, g.Packages...)
	if err != nil {
		return nil, errors.Wrap(err, "could not load packages")
	}
	all := flattenImports(pkgs)

	// Every package must load cleanly before anything is written.
	work := make([]*packages.Package, 0, len(pkgs))
	for _, pkg := range pkgs {
		if util.IsRuntime(pkg.PkgPath) {
			g.Logger.Debug("skipping runtime package", zap.String("package", pkg.PkgPath))
			continue
		}
		if err := g.loadErrors(pkg); err != nil {
			return nil, err
		}
		work = append(work, pkg)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for _, pkg := range work {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return g.generate(pkg, all)
		})
	}
	err = eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	ret := g.mu.results
	g.mu.results = nil
	sort.Sort(ret)
	if err == nil && len(ret) > 0 {
		err = errors.Errorf("%d problem(s) found", len(ret))
	}
	return ret, err
}

// loadErrors returns the first error which prevents the package from
// being examined. Errors in a previously generated file are ignored,
// since a stale shim is expected to stop compiling when its interface
// changes.
func (g *Generator) loadErrors(pkg *packages.Package) error {
	for _, e := range pkg.Errors {
		if e.Kind == packages.TypeError && filepath.Base(positionFile(e.Pos)) == g.Outfile {
			g.Logger.Debug("ignoring error in generated file", zap.String("error", e.Error()))
			continue
		}
		return errors.Wrap(e, "could not load source due to error(s)")
	}
	if pkg.Types == nil || len(pkg.GoFiles) == 0 {
		return errors.Errorf("%s: no source files", pkg.PkgPath)
	}
	return nil
}

// positionFile extracts the file name from a "file:line:col" position.
func positionFile(pos string) string {
	return strings.SplitN(pos, ":", 2)[0]
}

// generate produces the file for a single package.
func (g *Generator) generate(pkg *packages.Package, all map[string]*packages.Package) error {
	dir := filepath.Dir(pkg.GoFiles[0])
	out := filepath.Join(dir, g.Outfile)

	s := newScanner(pkg, g.Outfile)
	for _, file := range pkg.Syntax {
		s.scanFile(file)
	}
	decls, declsPath, err := readDecls(dir)
	if err != nil {
		return err
	}
	if decls != nil {
		s.addDecls(decls, declsPath, all)
	}
	ifaces := s.build()

	if len(s.results) > 0 {
		g.mu.Lock()
		g.mu.results = append(g.mu.results, s.results...)
		g.mu.Unlock()
		return nil
	}

	if len(ifaces) == 0 {
		return g.remove(out)
	}

	src, err := render(pkg.Types, ifaces)
	if err != nil {
		return err
	}
	for _, i := range ifaces {
		g.Logger.Info("generated shim",
			zap.String("package", pkg.PkgPath),
			zap.String("interface", i.Name),
			zap.Int("methods", len(i.Methods)),
			zap.Int("properties", len(i.Properties)))
	}
	return g.write(out, src)
}

// write stores a generated file unless it is already up to date.
func (g *Generator) write(path string, src []byte) error {
	if g.Emit != nil {
		return g.Emit(path, src)
	}
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, src) {
		g.Logger.Debug("up to date", zap.String("file", path))
		return nil
	}
	g.Logger.Debug("writing", zap.String("file", path))
	return errors.Wrap(os.WriteFile(path, src, 0644), path)
}

// remove deletes a previously generated file which is no longer needed.
// Files which were not written by the generator are left alone.
func (g *Generator) remove(path string) error {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, path)
	}
	if !bytes.HasPrefix(existing, []byte(Header)) {
		g.Logger.Warn("not removing file without a generated header", zap.String("file", path))
		return nil
	}
	if g.Emit != nil {
		return g.Emit(path, nil)
	}
	g.Logger.Debug("removing", zap.String("file", path))
	return errors.Wrap(os.Remove(path), path)
}
