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

package gen

import (
	"bytes"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/packages"
	"gopkg.in/yaml.v3"
)

// DeclsFile is the name of the optional declarations file which may be
// placed next to a package's sources. It declares contracts for
// interfaces which cannot carry magic comments, such as those of other
// packages:
//   interfaces:
//     - type: io.ReadCloser
//       directives: [contract]
//       methods:
//         Read: ["nullable param p"]
const DeclsFile = "nullguard.yaml"

type declsFile struct {
	Interfaces []declEntry `yaml:"interfaces"`
}

type declEntry struct {
	// Either a name in the same package or an import path and a name,
	// such as "io.Reader" or "github.com/x/y.Store".
	Type       string              `yaml:"type"`
	Directives []string            `yaml:"directives"`
	Methods    map[string][]string `yaml:"methods"`

	line, column int
}

// UnmarshalYAML records the position of the entry.
func (e *declEntry) UnmarshalYAML(value *yaml.Node) error {
	type plain declEntry
	if err := value.Decode((*plain)(e)); err != nil {
		return err
	}
	e.line, e.column = value.Line, value.Column
	return nil
}

// readDecls loads the declarations file in dir, if there is one.
func readDecls(dir string) (*declsFile, string, error) {
	path := filepath.Join(dir, DeclsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", errors.Wrap(err, path)
	}
	ret := &declsFile{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(ret); err != nil {
		return nil, "", errors.Wrap(err, path)
	}
	return ret, path, nil
}

// addDecls adds candidates from a declarations file. Names are resolved
// against the package and everything it imports.
func (s *scanner) addDecls(f *declsFile, path string, all map[string]*packages.Package) {
	for i := range f.Interfaces {
		e := &f.Interfaces[i]
		pos := token.Position{Filename: path, Line: e.line, Column: e.column}

		obj := s.resolve(e.Type, all)
		if obj == nil {
			s.report(pos, e.Type, "cannot find type %s among the package and its imports", e.Type)
			continue
		}
		named, ok := obj.Type().(*types.Named)
		if !ok || !types.IsInterface(named) {
			s.report(pos, e.Type, "%s is not a defined interface type", e.Type)
			continue
		}
		if !obj.Exported() && obj.Pkg() != s.pkg.Types {
			s.report(pos, e.Type, "%s is not exported", e.Type)
			continue
		}

		opted := false
		for _, line := range e.Directives {
			switch d, err := parseLine(line); {
			case err != nil:
				s.report(pos, e.Type, "%v", err)
			case d.name == dirContract && len(d.args) == 0:
				opted = true
			default:
				s.report(pos, e.Type, "%s must be placed on a method", d)
			}
		}
		if !opted {
			s.report(pos, e.Type, "declared without the contract directive")
			continue
		}
		if s.declared(named) {
			s.report(pos, e.Type, "already declared in source")
			continue
		}

		c := &candidate{
			extra: make(map[string][]located, len(e.Methods)),
			name:  e.Type,
			named: named,
			pos:   pos,
		}
		if obj.Pkg() == s.pkg.Types {
			c.name = obj.Name()
		}
		for name, lines := range e.Methods {
			for _, line := range lines {
				d, err := parseLine(line)
				if err != nil {
					s.report(pos, e.Type, "%s: %v", name, err)
					continue
				}
				c.extra[name] = append(c.extra[name], located{d, pos})
			}
		}
		s.candidates = append(s.candidates, c)
	}
}

// declared reports whether the type already has a candidate.
func (s *scanner) declared(named *types.Named) bool {
	for _, c := range s.candidates {
		if c.named == named {
			return true
		}
	}
	return false
}

// resolve finds a type by local or qualified name.
func (s *scanner) resolve(name string, all map[string]*packages.Package) *types.TypeName {
	scope := s.pkg.Types.Scope()
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		pkg := all[name[:dot]]
		if pkg == nil || pkg.Types == nil {
			return nil
		}
		scope, name = pkg.Types.Scope(), name[dot+1:]
	}
	obj, _ := scope.Lookup(name).(*types.TypeName)
	return obj
}

// flattenImports will return the given packages and their transitive
// imports as a map keyed by package path.
func flattenImports(pkgs []*packages.Package) map[string]*packages.Package {
	seen := make(map[string]*packages.Package)
	for pkgs != nil {
		work := pkgs
		pkgs = nil
		for _, pkg := range work {
			if seen[pkg.PkgPath] == nil {
				seen[pkg.PkgPath] = pkg
				for _, imp := range pkg.Imports {
					pkgs = append(pkgs, imp)
				}
			}
		}
	}
	return seen
}
