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
	"fmt"
	"go/format"
	"go/types"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/cockroachdb/nullguard/pkg/util"
	"github.com/pkg/errors"
)

// Header starts every generated file.
const Header = "// Code generated by nullguard. DO NOT EDIT."

var funcs = template.FuncMap{
	"quote": strconv.Quote,
	"quoteAll": func(s []string) string {
		quoted := make([]string, len(s))
		for i := range s {
			quoted[i] = strconv.Quote(s[i])
		}
		return strings.Join(quoted, ", ")
	},
	"ints": func(s []int) string {
		parts := make([]string, len(s))
		for i := range s {
			parts[i] = strconv.Itoa(s[i])
		}
		return strings.Join(parts, ", ")
	},
	"join": strings.Join,
}

var fileTemplate = template.Must(template.New("file").Funcs(funcs).Parse(Header + `

package {{ .Package }}

import (
{{- range .Std }}
	{{ if .Alias }}{{ .Alias }} {{ end }}{{ quote .Path }}
{{- end }}
{{- if and .Std .Other }}
{{ end }}
{{- range .Other }}
	{{ if .Alias }}{{ .Alias }} {{ end }}{{ quote .Path }}
{{- end }}
)

func init() {
{{- range .Interfaces }}
	{{ $.RT }}.Register[{{ .Type }}]({{ .ContractVar }}, func(inv {{ $.RT }}.Invoker) {{ .Type }} { return {{ .ShimType }}{inv} })
{{- end }}
}
{{ range .Interfaces }}
var {{ .ContractVar }} = &{{ $.Contract }}.Declaration{
	Interface: {{ quote .Name }},
	Contract: true,
{{- if .Methods }}
	Methods: []{{ $.Contract }}.MethodDecl{
{{- range .Methods }}
		{
			Name: {{ quote .Name }},
{{- if .Params }}
			Params: []string{ {{- quoteAll .Params -}} },
{{- end }}
{{- if .Results }}
			Results: []string{ {{- quoteAll .Results -}} },
{{- end }}
{{- if .Outputs }}
			Outputs: []int{ {{- ints .Outputs -}} },
{{- end }}
{{- if .Annotations }}
			Annotations: []{{ $.Contract }}.Annotation{
{{- range .Annotations }}
				{Marker: {{ $.Contract }}.{{ .Marker }}, Target: {{ $.Contract }}.{{ .Target }}},
{{- end }}
			},
{{- end }}
		},
{{- end }}
	},
{{- end }}
{{- if .Properties }}
	Properties: []{{ $.Contract }}.PropertyDecl{
{{- range .Properties }}
		{
			Name: {{ quote .Name }},
{{- if .Getter }}
			Getter: {{ quote .Getter }},
{{- end }}
{{- if .Setter }}
			Setter: {{ quote .Setter }},
{{- end }}
{{- if .Annotations }}
			Annotations: []{{ $.Contract }}.Annotation{
{{- range .Annotations }}
				{Marker: {{ $.Contract }}.{{ .Marker }}, Target: {{ $.Contract }}.{{ .Target }}},
{{- end }}
			},
{{- end }}
		},
{{- end }}
	},
{{- end }}
}

type {{ .ShimType }} struct{ inv {{ $.RT }}.Invoker }

var _ {{ .Type }} = {{ .ShimType }}{}
{{ $shim := .ShimType }}
{{- range .Shims }}
func (g {{ $shim }}) {{ .Name }}({{ join .Params ", " }}) {{ .ResultList }} {
{{- if .Results }}
	out := g.inv.Invoke({{ quote .Name }}{{ range .Args }}, {{ . }}{{ end }})
{{- range $i, $r := .Results }}
	r{{ $i }}, _ := out[{{ $i }}].({{ $r }})
{{- end }}
	return {{ join .Returns ", " }}
{{- else }}
	g.inv.Invoke({{ quote .Name }}{{ range .Args }}, {{ . }}{{ end }})
{{- end }}
}
{{ end }}
{{- end }}
`))

type importSpec struct {
	Alias string
	Path  string
}

// fileData is consumed by fileTemplate.
type fileData struct {
	Package    string
	Contract   string
	RT         string
	Std        []importSpec
	Other      []importSpec
	Interfaces []*ifaceData
}

type ifaceData struct {
	*iface
	ContractVar string
	ShimType    string
	Shims       []shimMethod
	Type        string
}

type shimMethod struct {
	Name string
	// Parameter declarations, such as "p0 *Book".
	Params  []string
	Args    []string
	Results []string
	Returns []string
}

// ResultList renders the result types of the method signature.
func (m shimMethod) ResultList() string {
	switch len(m.Results) {
	case 0:
		return ""
	case 1:
		return m.Results[0]
	default:
		return "(" + strings.Join(m.Results, ", ") + ")"
	}
}

// importer assigns package names to the imports of a generated file.
type importer struct {
	local  *types.Package
	byPath map[string]string
	used   map[string]bool
}

func newImporter(local *types.Package) *importer {
	ret := &importer{
		byPath: make(map[string]string),
		local:  local,
		used:   make(map[string]bool),
	}
	// Local declarations shadow imports.
	for _, name := range local.Scope().Names() {
		ret.used[name] = true
	}
	return ret
}

// reserve marks names which no import may use.
func (i *importer) reserve(names ...string) {
	for _, name := range names {
		i.used[name] = true
	}
}

// add returns the name to use for the package at path.
func (i *importer) add(path, name string) string {
	if ret, ok := i.byPath[path]; ok {
		return ret
	}
	ret := name
	for n := 2; i.used[ret]; n++ {
		ret = name + strconv.Itoa(n)
	}
	i.used[ret] = true
	i.byPath[path] = ret
	return ret
}

// qualifier implements types.Qualifier.
func (i *importer) qualifier(pkg *types.Package) string {
	if pkg == i.local {
		return ""
	}
	return i.add(pkg.Path(), pkg.Name())
}

// specs splits the imports into standard-library and other packages.
func (i *importer) specs() (std, other []importSpec) {
	paths := make([]string, 0, len(i.byPath))
	for path := range i.byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		spec := importSpec{Path: path}
		if name := i.byPath[path]; name != lastElement(path) {
			spec.Alias = name
		}
		if first := strings.SplitN(path, "/", 2)[0]; strings.Contains(first, ".") {
			other = append(other, spec)
		} else {
			std = append(std, spec)
		}
	}
	return
}

func lastElement(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

// render produces the formatted source of one generated file.
func render(pkg *types.Package, ifaces []*iface) ([]byte, error) {
	imp := newImporter(pkg)
	// The locals declared by shim methods would shadow an import of the
	// same name.
	imp.reserve("g", "out")
	for _, i := range ifaces {
		for _, m := range i.Methods {
			for n := 0; n < m.sig.Params().Len(); n++ {
				imp.reserve(fmt.Sprintf("p%d", n))
			}
			for n := 0; n < m.sig.Results().Len(); n++ {
				imp.reserve(fmt.Sprintf("r%d", n))
			}
		}
	}
	data := &fileData{
		Contract: imp.add(util.Base+"contract", "contract"),
		Package:  pkg.Name(),
		RT:       imp.add(util.Base+"rt", "rt"),
	}

	for _, i := range ifaces {
		base := i.named.Obj().Name()
		if !util.InPackage(i.named.Obj(), pkg.Path()) {
			base = i.named.Obj().Pkg().Name() + base
		}
		d := &ifaceData{
			ContractVar: lowerFirst(base) + "Contract",
			ShimType:    lowerFirst(base) + "Guard",
			Type:        types.TypeString(i.named, imp.qualifier),
			iface:       i,
		}
		for _, m := range i.Methods {
			d.Shims = append(d.Shims, shim(m, imp))
		}
		data.Interfaces = append(data.Interfaces, d)
	}
	data.Std, data.Other = imp.specs()

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(err, "could not execute template")
	}
	ret, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "could not format generated code for %s:\n%s", pkg.Path(), buf.String())
	}
	return ret, nil
}

// shim describes the forwarding method for m.
func shim(m *method, imp *importer) shimMethod {
	ret := shimMethod{Name: m.Name}
	params := m.sig.Params()
	for i := 0; i < params.Len(); i++ {
		name := fmt.Sprintf("p%d", i)
		typ := params.At(i).Type()
		if m.sig.Variadic() && i == params.Len()-1 {
			ret.Params = append(ret.Params,
				name+" ..."+types.TypeString(typ.(*types.Slice).Elem(), imp.qualifier))
		} else {
			ret.Params = append(ret.Params, name+" "+types.TypeString(typ, imp.qualifier))
		}
		ret.Args = append(ret.Args, name)
	}
	results := m.sig.Results()
	for i := 0; i < results.Len(); i++ {
		ret.Results = append(ret.Results, types.TypeString(results.At(i).Type(), imp.qualifier))
		ret.Returns = append(ret.Returns, fmt.Sprintf("r%d", i))
	}
	return ret
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
