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
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// An iface is an interface which will receive a shim.
type iface struct {
	// The name as written by the user, such as "Store" or "io.Reader".
	Name       string
	Methods    []*method
	Properties []*property

	named *types.Named
	pos   token.Position
}

// A method carries everything needed to render one contract.MethodDecl.
type method struct {
	Name        string
	Params      []string
	Results     []string
	Outputs     []int
	Annotations []annotation

	sig *types.Signature
}

// A property carries everything needed to render one
// contract.PropertyDecl.
type property struct {
	Name        string
	Getter      string
	Setter      string
	Annotations []annotation
}

// A located directive remembers where it was written.
type located struct {
	directive
	pos token.Position
}

// A candidate is an interface which opted in, before its methods have
// been examined.
type candidate struct {
	name  string
	named *types.Named
	pos   token.Position
	// Directives for methods by name, from a declarations file.
	extra map[string][]located
}

// scanner finds the contract interfaces of a single package.
type scanner struct {
	outfile string
	pkg     *packages.Package
	results Results

	candidates []*candidate
	// Directives attached to interface methods declared in the package,
	// whichever interface declared them.
	methods map[*types.Func][]located
	// Methods whose directives have been consumed by some candidate.
	used map[*types.Func]bool
}

func newScanner(pkg *packages.Package, outfile string) *scanner {
	return &scanner{
		methods: make(map[*types.Func][]located),
		outfile: outfile,
		pkg:     pkg,
		used:    make(map[*types.Func]bool),
	}
}

// report records a problem.
func (s *scanner) report(pos token.Position, intf string, format string, args ...interface{}) {
	s.results = append(s.results, &Result{
		Interface: intf,
		Message:   fmt.Sprintf(format, args...),
		Pos:       pos,
	})
}

// scanFile looks for magic comments in one file.
func (s *scanner) scanFile(file *ast.File) {
	fset := s.pkg.Fset
	if filepath.Base(fset.Position(file.Pos()).Filename) == s.outfile {
		return
	}
	// CommentMap associates each node in the file with
	// its surrounding comments.
	comments := ast.NewCommentMap(fset, file, file.Comments)

	directives := func(groups []*ast.CommentGroup) []located {
		var ret []located
		for _, group := range groups {
			for _, comment := range group.List {
				if d, ok := parseComment(comment.Text); ok {
					ret = append(ret, located{d, fset.Position(comment.Pos())})
				}
			}
		}
		return ret
	}

	ast.Inspect(file, func(node ast.Node) bool {
		// We'll see a node==nil as the very last call.
		if node == nil {
			return false
		}
		switch t := node.(type) {
		case *ast.File:
			return true

		case *ast.GenDecl:
			if t.Tok != token.TYPE {
				return false
			}
			for _, spec := range t.Specs {
				tSpec := spec.(*ast.TypeSpec)
				it, ok := tSpec.Type.(*ast.InterfaceType)
				if !ok {
					continue
				}
				obj, ok := s.pkg.TypesInfo.Defs[tSpec.Name].(*types.TypeName)
				if !ok {
					continue
				}

				// Handle the usual case where the directive is associated
				// with the type keyword, and the unusual case where a type()
				// block is being used and the directive is on the entry.
				var found []located
				if len(t.Specs) == 1 {
					found = directives(comments[t])
				}
				found = append(found, directives(comments[tSpec])...)
				s.interfaceDirectives(obj, found)

				for _, field := range it.Methods.List {
					if _, ok := field.Type.(*ast.FuncType); !ok || len(field.Names) == 0 {
						continue
					}
					fn, ok := s.pkg.TypesInfo.Defs[field.Names[0]].(*types.Func)
					if !ok {
						continue
					}
					if found := directives(comments[field]); len(found) > 0 {
						s.methods[fn] = append(s.methods[fn], found...)
					}
				}
			}
			return false

		default:
			// We don't need to descend into function bodies.
			return false
		}
	})
}

// interfaceDirectives handles the directives attached to an interface
// declaration.
func (s *scanner) interfaceDirectives(obj *types.TypeName, found []located) {
	opted := false
	for _, d := range found {
		switch {
		case d.name != dirContract:
			s.report(d.pos, obj.Name(), "%s must be placed on an interface method", d)
		case len(d.args) > 0:
			s.report(d.pos, obj.Name(), "contract takes no arguments")
		case opted:
			s.report(d.pos, obj.Name(), "duplicate contract directive")
		default:
			opted = true
		}
	}
	if !opted {
		return
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		s.report(found[0].pos, obj.Name(), "contract requires a defined interface type, not an alias")
		return
	}
	s.candidates = append(s.candidates, &candidate{
		name:  obj.Name(),
		named: named,
		pos:   found[0].pos,
	})
}

// build converts every candidate into an iface. Candidates with problems
// are reported and dropped.
func (s *scanner) build() []*iface {
	var ret []*iface
	for _, c := range s.candidates {
		if i := s.buildOne(c); i != nil {
			ret = append(ret, i)
		}
	}

	// Directives on methods which no contract interface will see.
	var stray []located
	for fn, found := range s.methods {
		if !s.used[fn] {
			stray = append(stray, found...)
		}
	}
	sort.Slice(stray, func(i, j int) bool {
		if stray[i].pos.Filename != stray[j].pos.Filename {
			return stray[i].pos.Filename < stray[j].pos.Filename
		}
		return stray[i].pos.Offset < stray[j].pos.Offset
	})
	for _, d := range stray {
		s.report(d.pos, "", "%s has no effect without nullguard:contract on an enclosing interface", d)
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (s *scanner) buildOne(c *candidate) *iface {
	before := len(s.results)
	if c.named.TypeParams().Len() > 0 {
		s.report(c.pos, c.name, "generic interfaces cannot be guarded")
		return nil
	}
	it, ok := c.named.Underlying().(*types.Interface)
	if !ok {
		s.report(c.pos, c.name, "%s is not an interface", c.named)
		return nil
	}

	ret := &iface{Name: c.name, named: c.named, pos: c.pos}
	dirs := make(map[string]*methodDirectives, it.NumMethods())

	for i := 0; i < it.NumMethods(); i++ {
		fn := it.Method(i)
		if !fn.Exported() {
			s.report(c.pos, c.name, "unexported method %s cannot be forwarded", fn.Name())
			continue
		}
		sig := fn.Type().(*types.Signature)
		md := &methodDirectives{}
		found := append(append([]located(nil), s.methods[fn]...), c.extra[fn.Name()]...)
		s.used[fn] = true
		for _, d := range found {
			if err := md.apply(d.directive, sig); err != nil {
				s.report(d.pos, c.name, "%s: %v", fn.Name(), err)
			}
		}
		dirs[fn.Name()] = md

		ret.Methods = append(ret.Methods, &method{
			Annotations: md.annotations,
			Name:        fn.Name(),
			Outputs:     md.outputs,
			Params:      names(sig.Params()),
			Results:     names(sig.Results()),
			sig:         sig,
		})
	}

	for name := range c.extra {
		if dirs[name] == nil {
			s.report(c.pos, c.name, "no such method %s", name)
		}
	}

	ret.Properties = s.pair(c, ret.Methods, dirs)
	if len(s.results) > before {
		return nil
	}
	return ret
}

// pair groups methods into properties. A method X(idx...) T is paired
// with SetX(idx..., T) automatically; lone accessors become properties
// only when a directive says so.
func (s *scanner) pair(c *candidate, methods []*method, dirs map[string]*methodDirectives) []*property {
	byName := make(map[string]*method, len(methods))
	for _, m := range methods {
		byName[m.Name] = m
	}

	var ret []*property
	paired := make(map[string]bool)
	for _, setter := range methods {
		if len(setter.Name) <= 3 || !strings.HasPrefix(setter.Name, "Set") || !isSetter(setter.sig) {
			continue
		}
		getter := byName[setter.Name[3:]]
		if getter == nil || !isGetter(getter.sig) || !accessorsAgree(getter.sig, setter.sig) {
			continue
		}
		p := &property{Name: getter.Name, Getter: getter.Name, Setter: setter.Name}
		p.Annotations = append(p.Annotations, dirs[getter.Name].propAnnotations...)
		p.Annotations = append(p.Annotations, dirs[setter.Name].propAnnotations...)
		paired[getter.Name] = true
		paired[setter.Name] = true
		ret = append(ret, p)
	}

	for _, m := range methods {
		md := dirs[m.Name]
		if paired[m.Name] || md == nil || !md.property {
			continue
		}
		p := &property{Annotations: md.propAnnotations}
		switch {
		case isGetter(m.sig):
			p.Name, p.Getter = m.Name, m.Name
		case isSetter(m.sig) && len(m.Name) > 3 && strings.HasPrefix(m.Name, "Set"):
			p.Name, p.Setter = m.Name[3:], m.Name
		default:
			s.report(c.pos, c.name, "%s cannot be a property accessor", m.Name)
			continue
		}
		ret = append(ret, p)
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

var errorType = types.Universe.Lookup("error").Type()

func isGetter(sig *types.Signature) bool {
	return !sig.Variadic() && sig.Results().Len() == 1 && !types.Identical(sig.Results().At(0).Type(), errorType)
}

func isSetter(sig *types.Signature) bool {
	return !sig.Variadic() && sig.Results().Len() == 0 && sig.Params().Len() > 0
}

// accessorsAgree checks that the setter takes the getter's parameters
// followed by the getter's result type.
func accessorsAgree(getter, setter *types.Signature) bool {
	gp, sp := getter.Params(), setter.Params()
	if sp.Len() != gp.Len()+1 {
		return false
	}
	for i := 0; i < gp.Len(); i++ {
		if !types.Identical(gp.At(i).Type(), sp.At(i).Type()) {
			return false
		}
	}
	return types.Identical(getter.Results().At(0).Type(), sp.At(gp.Len()).Type())
}

// names returns the names in a tuple, or nil if none are named.
func names(tuple *types.Tuple) []string {
	ret := make([]string, tuple.Len())
	named := false
	for i := range ret {
		if n := tuple.At(i).Name(); n != "" && n != "_" {
			ret[i] = n
			named = true
		}
	}
	if !named {
		return nil
	}
	return ret
}
