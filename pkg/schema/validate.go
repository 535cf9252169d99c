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

package schema

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/cockroachdb/nullguard/pkg/contract"
)

// Validate builds the contract for an interface type. Every problem with
// the declaration is reported as a *contract.DefinitionError; no partial
// contract is ever returned.
func Validate(t reflect.Type, decl *contract.Declaration) (*InterfaceContract, error) {
	if t == nil {
		return nil, &contract.DefinitionError{Reason: "no type given"}
	}
	name := QualifiedName(t)
	if t.Kind() != reflect.Interface {
		return nil, &contract.DefinitionError{
			Interface: name,
			Reason:    fmt.Sprintf("%s is a %s, not an interface", t, t.Kind()),
		}
	}
	if decl == nil || !decl.Contract {
		return nil, &contract.DefinitionError{
			Interface: name,
			Reason:    "the interface does not carry the nullguard:contract marker",
		}
	}

	v := &validator{
		claimed: make(map[string]string),
		decl:    decl,
		methods: make(map[string]int, t.NumMethod()),
		name:    name,
		t:       t,
	}
	return v.validate()
}

type validator struct {
	// Accessor method names mapped to the property that claimed them.
	claimed map[string]string
	decl    *contract.Declaration
	methods map[string]int
	name    string
	t       reflect.Type
}

func (v *validator) validate() (*InterfaceContract, error) {
	ret := &InterfaceContract{
		Members: make([]*MemberContract, v.t.NumMethod()),
		Name:    v.name,
		Type:    v.t,
	}

	for i := 0; i < v.t.NumMethod(); i++ {
		m := v.t.Method(i)
		if !m.IsExported() {
			return nil, v.fail(m.Name, "unexported methods cannot be forwarded")
		}
		v.methods[m.Name] = i
	}

	seen := make(map[string]bool, len(v.decl.Methods))
	for _, md := range v.decl.Methods {
		if _, ok := v.methods[md.Name]; !ok {
			return nil, v.fail(md.Name, "no such method")
		}
		if seen[md.Name] {
			return nil, v.fail(md.Name, "method declared more than once")
		}
		seen[md.Name] = true
	}

	for i := range v.decl.Properties {
		p, err := v.property(&v.decl.Properties[i])
		if err != nil {
			return nil, err
		}
		if p.Getter != nil {
			ret.Members[p.Getter.Index] = p.Getter
		}
		if p.Setter != nil {
			ret.Members[p.Setter.Index] = p.Setter
		}
		ret.Properties = append(ret.Properties, p)
	}

	for i := range ret.Members {
		if ret.Members[i] != nil {
			continue
		}
		m, err := v.method(i)
		if err != nil {
			return nil, err
		}
		ret.Members[i] = m
	}
	return ret, nil
}

// method builds the contract for a plain method.
func (v *validator) method(idx int) (*MemberContract, error) {
	m := v.t.Method(idx)
	ft := m.Type
	md := v.decl.Method(m.Name)

	ret := &MemberContract{
		Index:    idx,
		Name:     m.Name,
		Type:     ft,
		Variadic: ft.IsVariadic(),
	}
	nout := ft.NumOut()
	if nout > 0 && ft.Out(nout-1) == errorType {
		ret.ErrorResult = true
		nout--
	}

	outputs := make(map[int]bool)
	params := make(map[int][]contract.Marker)
	results := make(map[int][]contract.Marker)
	if md != nil {
		for _, o := range md.Outputs {
			switch {
			case o < 0 || o >= ft.NumIn():
				return nil, v.fail(m.Name, "output parameter %d is out of range", o)
			case outputs[o]:
				return nil, v.fail(m.Name, "parameter %d is declared as an output more than once", o)
			case ret.Variadic && o == ft.NumIn()-1:
				return nil, v.fail(m.Name, "a variadic parameter cannot be an output")
			case ft.In(o).Kind() != reflect.Ptr:
				return nil, v.fail(m.Name, "output parameter %d must be a pointer, not %s", o, ft.In(o))
			}
			outputs[o] = true
		}

		for _, a := range md.Annotations {
			switch a.Target.Kind {
			case contract.TargetDefault:
				if nout == 0 {
					return nil, v.fail(m.Name, "nullability markers are not allowed on void-returning members")
				}
				results[0] = append(results[0], a.Marker)
			case contract.TargetResult:
				r := a.Target.Index
				switch {
				case r < 0 || r >= ft.NumOut():
					return nil, v.fail(m.Name, "result %d is out of range", r)
				case nout == 0:
					return nil, v.fail(m.Name, "nullability markers are not allowed on void-returning members")
				case r >= nout:
					return nil, v.fail(m.Name, "error results cannot carry nullability markers")
				}
				results[r] = append(results[r], a.Marker)
			case contract.TargetParam:
				p := a.Target.Index
				if p < 0 || p >= ft.NumIn() {
					return nil, v.fail(m.Name, "parameter %d is out of range", p)
				}
				params[p] = append(params[p], a.Marker)
			default:
				return nil, v.fail(m.Name, "unknown annotation target %s", a.Target)
			}
		}
	}

	for i := 0; i < ft.NumIn(); i++ {
		kind, typ := contract.KindArgument, ft.In(i)
		if outputs[i] {
			kind, typ = contract.KindOutput, typ.Elem()
		}
		variadic := ret.Variadic && i == ft.NumIn()-1
		pos, err := v.position(m.Name, kind, i, paramName(md, i, ft.NumIn()), typ, params[i], variadic)
		if err != nil {
			return nil, err
		}
		if outputs[i] {
			ret.Outputs = append(ret.Outputs, pos)
		} else {
			ret.Inputs = append(ret.Inputs, pos)
		}
	}

	for i := 0; i < nout; i++ {
		pos, err := v.position(m.Name, contract.KindReturn, i, resultName(md, i, nout), ft.Out(i), results[i], false)
		if err != nil {
			return nil, err
		}
		ret.Results = append(ret.Results, pos)
	}
	return ret, nil
}

// property builds the accessor contracts for a declared property.
func (v *validator) property(pd *contract.PropertyDecl) (*PropertyContract, error) {
	if pd.Name == "" {
		return nil, v.fail("", "property declared without a name")
	}
	if pd.Getter == "" && pd.Setter == "" {
		return nil, v.fail(pd.Name, "property has no accessors")
	}

	var getter, setter *reflect.Method
	lookup := func(name string) (*reflect.Method, error) {
		idx, ok := v.methods[name]
		if !ok {
			return nil, v.fail(pd.Name, "accessor %s: no such method", name)
		}
		if other, dup := v.claimed[name]; dup {
			return nil, v.fail(pd.Name, "accessor %s already belongs to property %s", name, other)
		}
		v.claimed[name] = pd.Name
		m := v.t.Method(idx)
		return &m, nil
	}

	var valueType reflect.Type
	var indexTypes []reflect.Type
	if pd.Getter != "" {
		m, err := lookup(pd.Getter)
		if err != nil {
			return nil, err
		}
		ft := m.Type
		if ft.NumOut() != 1 || ft.Out(0) == errorType || ft.IsVariadic() {
			return nil, v.fail(m.Name, "getter of property %s must return exactly one non-error value", pd.Name)
		}
		getter = m
		valueType = ft.Out(0)
		for i := 0; i < ft.NumIn(); i++ {
			indexTypes = append(indexTypes, ft.In(i))
		}
	}
	if pd.Setter != "" {
		m, err := lookup(pd.Setter)
		if err != nil {
			return nil, err
		}
		ft := m.Type
		if ft.NumOut() != 0 || ft.NumIn() == 0 || ft.IsVariadic() {
			return nil, v.fail(m.Name,
				"setter of property %s must accept the value as its last parameter and return nothing", pd.Name)
		}
		setter = m
		sv := ft.In(ft.NumIn() - 1)
		var sidx []reflect.Type
		for i := 0; i < ft.NumIn()-1; i++ {
			sidx = append(sidx, ft.In(i))
		}
		if getter == nil {
			valueType, indexTypes = sv, sidx
		} else if sv != valueType || !sameTypes(sidx, indexTypes) {
			return nil, v.fail(pd.Name, "accessors %s and %s disagree on the value or indexer types",
				getter.Name, setter.Name)
		}
	}

	var gd, sd *contract.MethodDecl
	if getter != nil {
		gd = v.decl.Method(getter.Name)
	}
	if setter != nil {
		sd = v.decl.Method(setter.Name)
	}
	for _, md := range []*contract.MethodDecl{gd, sd} {
		if md != nil && len(md.Outputs) > 0 {
			return nil, v.fail(md.Name, "property accessors cannot have output parameters")
		}
	}

	var propValue, getValue, setValue []contract.Marker
	index := make([][]contract.Marker, len(indexTypes))
	for _, a := range pd.Annotations {
		switch a.Target.Kind {
		case contract.TargetDefault:
			propValue = append(propValue, a.Marker)
		case contract.TargetParam:
			if a.Target.Index < 0 || a.Target.Index >= len(indexTypes) {
				return nil, v.fail(pd.Name, "indexer argument %d is out of range", a.Target.Index)
			}
			index[a.Target.Index] = append(index[a.Target.Index], a.Marker)
		default:
			return nil, v.fail(pd.Name, "property markers may only target the value or an indexer argument")
		}
	}
	if gd != nil {
		for _, a := range gd.Annotations {
			switch {
			case a.Target.Kind == contract.TargetDefault,
				a.Target.Kind == contract.TargetResult && a.Target.Index == 0:
				getValue = append(getValue, a.Marker)
			case a.Target.Kind == contract.TargetParam && a.Target.Index >= 0 && a.Target.Index < len(indexTypes):
				index[a.Target.Index] = append(index[a.Target.Index], a.Marker)
			default:
				return nil, v.fail(gd.Name, "%s is out of range for a getter", a.Target)
			}
		}
	}
	if sd != nil {
		for _, a := range sd.Annotations {
			switch {
			case a.Target.Kind == contract.TargetDefault,
				a.Target.Kind == contract.TargetParam && a.Target.Index == len(indexTypes):
				setValue = append(setValue, a.Marker)
			case a.Target.Kind == contract.TargetParam && a.Target.Index >= 0 && a.Target.Index < len(indexTypes):
				index[a.Target.Index] = append(index[a.Target.Index], a.Marker)
			case a.Target.Kind == contract.TargetResult:
				return nil, v.fail(sd.Name, "nullability markers are not allowed on void-returning members")
			default:
				return nil, v.fail(sd.Name, "%s is out of range for a setter", a.Target)
			}
		}
	}

	if len(propValue) > 0 {
		if len(getValue) > 0 || len(setValue) > 0 {
			return nil, v.fail(pd.Name,
				"property-level and accessor-level nullability markers are mutually exclusive")
		}
		getValue, setValue = propValue, propValue
	}

	ret := &PropertyContract{Name: pd.Name}
	for i, typ := range indexTypes {
		name := paramName(gd, i, len(indexTypes))
		if name == "" || name[0] == '#' {
			if alt := paramName(sd, i, len(indexTypes)); alt != "" {
				name = alt
			}
		}
		pos, err := v.position(pd.Name, contract.KindIndex, i, name, typ, index[i], false)
		if err != nil {
			return nil, err
		}
		ret.Index = append(ret.Index, pos)
	}

	if getter != nil {
		pos, err := v.position(getter.Name, contract.KindGetter, 0, "", valueType, getValue, false)
		if err != nil {
			return nil, err
		}
		ret.Getter = &MemberContract{
			Index:    v.methods[getter.Name],
			Inputs:   append([]Position(nil), ret.Index...),
			Name:     getter.Name,
			Property: pd.Name,
			Results:  []Position{pos},
			Type:     getter.Type,
		}
	}
	if setter != nil {
		pos, err := v.position(setter.Name, contract.KindSetter, len(indexTypes), "", valueType, setValue, false)
		if err != nil {
			return nil, err
		}
		ret.Setter = &MemberContract{
			Index:    v.methods[setter.Name],
			Inputs:   append(append([]Position(nil), ret.Index...), pos),
			Name:     setter.Name,
			Property: pd.Name,
			Type:     setter.Type,
		}
	}
	return ret, nil
}

// position resolves the markers attached to a single position.
func (v *validator) position(
	member string,
	kind contract.Kind,
	index int,
	name string,
	typ reflect.Type,
	markers []contract.Marker,
	variadic bool,
) (Position, error) {
	label := kind.Describe()
	if name != "" {
		label += " " + strconv.Quote(name)
	}

	allowed, present, err := contract.Resolve(markers, label)
	if err != nil {
		return Position{}, v.wrap(member, err)
	}

	nullness, field := NullnessOf(typ)
	if variadic {
		if present {
			return Position{}, v.fail(member, "%s: variadic parameters cannot carry nullability markers", label)
		}
		nullness, field = NotNullable, nil
	}
	if present && nullness == NotNullable {
		return Position{}, v.fail(member, "%s: type %s cannot be nil, so it cannot carry a nullability marker",
			label, typ)
	}

	return Position{
		AllowsNil:  allowed,
		Index:      index,
		Kind:       kind,
		Name:       name,
		Nullness:   nullness,
		Type:       typ,
		ValidField: field,
	}, nil
}

func (v *validator) fail(member, format string, args ...interface{}) error {
	return &contract.DefinitionError{
		Interface: v.name,
		Member:    member,
		Reason:    fmt.Sprintf(format, args...),
	}
}

// wrap fills in the location of a DefinitionError produced elsewhere.
func (v *validator) wrap(member string, err error) error {
	if def, ok := err.(*contract.DefinitionError); ok && def.Interface == "" {
		def.Interface = v.name
		def.Member = member
	}
	return err
}

// paramName returns the declared name of a parameter, falling back to
// "#i" when a method has several unnamed parameters.
func paramName(md *contract.MethodDecl, i, count int) string {
	if md != nil {
		return pickName(md.Params, i, count)
	}
	return pickName(nil, i, count)
}

func resultName(md *contract.MethodDecl, i, count int) string {
	if md != nil {
		return pickName(md.Results, i, count)
	}
	return pickName(nil, i, count)
}

func pickName(names []string, i, count int) string {
	if i < len(names) && names[i] != "" && names[i] != "_" {
		return names[i]
	}
	if count <= 1 {
		return ""
	}
	return "#" + strconv.Itoa(i)
}

func sameTypes(a, b []reflect.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
