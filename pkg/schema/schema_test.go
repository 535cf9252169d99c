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

package schema_test

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/cockroachdb/nullguard/pkg/contract"
	"github.com/cockroachdb/nullguard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Store interface {
	Close() error
	Each(fn func(string), keys ...string)
	Get(key *string) (*string, error)
	Load(key string, dst **string) error
	Note() sql.NullString
	Put(key *string, val *string) error
	Size() int
}

type Props interface {
	Item(idx *int) *string
	Name() *string
	SetItem(idx *int, v *string)
	SetName(v *string)
}

type hidden interface {
	Exported()
	unexported()
}

var (
	storeType  = reflect.TypeOf((*Store)(nil)).Elem()
	propsType  = reflect.TypeOf((*Props)(nil)).Elem()
	hiddenType = reflect.TypeOf((*hidden)(nil)).Elem()
)

func nullable(t contract.Target) contract.Annotation { return contract.Annotation{Marker: contract.CanBeNull, Target: t} }
func nonnull(t contract.Target) contract.Annotation  { return contract.Annotation{Marker: contract.NeverNull, Target: t} }

func methods(md ...contract.MethodDecl) *contract.Declaration {
	return &contract.Declaration{Contract: true, Methods: md}
}

func props(pd ...contract.PropertyDecl) *contract.Declaration {
	return &contract.Declaration{Contract: true, Properties: pd}
}

func TestValidateErrors(t *testing.T) {
	tcs := map[string]struct {
		t      reflect.Type
		decl   *contract.Declaration
		member string
		reason string
	}{
		"no type": {
			reason: "no type given",
		},
		"not an interface": {
			t:      reflect.TypeOf(0),
			decl:   methods(),
			reason: "int is a int, not an interface",
		},
		"no declaration": {
			t:      storeType,
			reason: "does not carry the nullguard:contract marker",
		},
		"no opt-in": {
			t:      storeType,
			decl:   &contract.Declaration{},
			reason: "does not carry the nullguard:contract marker",
		},
		"unexported": {
			t:      hiddenType,
			decl:   methods(),
			member: "unexported",
			reason: "unexported methods cannot be forwarded",
		},
		"unknown method": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Nope"}),
			member: "Nope",
			reason: "no such method",
		},
		"duplicate method": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Size"}, contract.MethodDecl{Name: "Size"}),
			member: "Size",
			reason: "method declared more than once",
		},
		"void": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Close", Annotations: []contract.Annotation{nullable(contract.Default())}}),
			member: "Close",
			reason: "not allowed on void-returning members",
		},
		"error result": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Get", Annotations: []contract.Annotation{nullable(contract.Result(1))}}),
			member: "Get",
			reason: "error results cannot carry nullability markers",
		},
		"result range": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Get", Annotations: []contract.Annotation{nullable(contract.Result(2))}}),
			reason: "result 2 is out of range",
		},
		"param range": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Get", Annotations: []contract.Annotation{nullable(contract.Param(1))}}),
			reason: "parameter 1 is out of range",
		},
		"output not a pointer": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Load", Outputs: []int{0}}),
			reason: "output parameter 0 must be a pointer",
		},
		"output twice": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Load", Outputs: []int{1, 1}}),
			reason: "declared as an output more than once",
		},
		"variadic output": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Each", Outputs: []int{1}}),
			reason: "a variadic parameter cannot be an output",
		},
		"variadic marker": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Each", Annotations: []contract.Annotation{nullable(contract.Param(1))}}),
			reason: "variadic parameters cannot carry nullability markers",
		},
		"cannot be nil": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Size", Annotations: []contract.Annotation{nonnull(contract.Default())}}),
			member: "Size",
			reason: "type int cannot be nil",
		},
		"two markers": {
			t: storeType,
			decl: methods(contract.MethodDecl{Name: "Put", Params: []string{"key"},
				Annotations: []contract.Annotation{nullable(contract.Param(0)), nullable(contract.Param(0))}}),
			reason: `argument "key": only one nullability marker is allowed per position, found 2`,
		},
		"invalid marker": {
			t:      storeType,
			decl:   methods(contract.MethodDecl{Name: "Get", Annotations: []contract.Annotation{{Target: contract.Default()}}}),
			reason: "invalid nullability marker unspecified",
		},
		"mutually exclusive": {
			t: propsType,
			decl: &contract.Declaration{
				Contract:   true,
				Methods:    []contract.MethodDecl{{Name: "Name", Annotations: []contract.Annotation{nonnull(contract.Default())}}},
				Properties: []contract.PropertyDecl{{Name: "Name", Getter: "Name", Setter: "SetName", Annotations: []contract.Annotation{nullable(contract.Default())}}},
			},
			member: "Name",
			reason: "property-level and accessor-level nullability markers are mutually exclusive",
		},
		"pooled indexer markers": {
			t: propsType,
			decl: &contract.Declaration{
				Contract:   true,
				Methods:    []contract.MethodDecl{{Name: "SetItem", Annotations: []contract.Annotation{nullable(contract.Param(0))}}},
				Properties: []contract.PropertyDecl{{Name: "Item", Getter: "Item", Setter: "SetItem", Annotations: []contract.Annotation{nullable(contract.Param(0))}}},
			},
			member: "Item",
			reason: "only one nullability marker is allowed per position",
		},
		"indexer range": {
			t:      propsType,
			decl:   props(contract.PropertyDecl{Name: "Item", Getter: "Item", Annotations: []contract.Annotation{nullable(contract.Param(1))}}),
			reason: "indexer argument 1 is out of range",
		},
		"disagreeing accessors": {
			t:      propsType,
			decl:   props(contract.PropertyDecl{Name: "Name", Getter: "Name", Setter: "SetItem"}),
			reason: "accessors Name and SetItem disagree",
		},
		"claimed twice": {
			t: propsType,
			decl: props(
				contract.PropertyDecl{Name: "Name", Getter: "Name"},
				contract.PropertyDecl{Name: "Other", Getter: "Name"},
			),
			reason: "accessor Name already belongs to property Name",
		},
		"bad getter": {
			t:      storeType,
			decl:   props(contract.PropertyDecl{Name: "Put", Getter: "Put"}),
			reason: "must return exactly one non-error value",
		},
		"bad setter": {
			t:      storeType,
			decl:   props(contract.PropertyDecl{Name: "Size", Setter: "Size"}),
			reason: "must accept the value as its last parameter",
		},
		"no accessors": {
			t:      propsType,
			decl:   props(contract.PropertyDecl{Name: "Name"}),
			reason: "property has no accessors",
		},
		"setter result marker": {
			t: propsType,
			decl: &contract.Declaration{
				Contract:   true,
				Methods:    []contract.MethodDecl{{Name: "SetName", Annotations: []contract.Annotation{nullable(contract.Result(0))}}},
				Properties: []contract.PropertyDecl{{Name: "Name", Getter: "Name", Setter: "SetName"}},
			},
			reason: "not allowed on void-returning members",
		},
		"accessor outputs": {
			t: propsType,
			decl: &contract.Declaration{
				Contract:   true,
				Methods:    []contract.MethodDecl{{Name: "SetName", Outputs: []int{0}}},
				Properties: []contract.PropertyDecl{{Name: "Name", Getter: "Name", Setter: "SetName"}},
			},
			reason: "property accessors cannot have output parameters",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			c, err := schema.Validate(tc.t, tc.decl)
			a.Nil(c)
			var def *contract.DefinitionError
			if !a.True(errors.As(err, &def), "expected DefinitionError, got %v", err) {
				return
			}
			a.Contains(def.Reason, tc.reason)
			if tc.member != "" {
				a.Equal(tc.member, def.Member)
			}
		})
	}
}

func TestValidateMethods(t *testing.T) {
	a := assert.New(t)
	c, err := schema.Validate(storeType, methods(
		contract.MethodDecl{Name: "Get", Params: []string{"key"}, Annotations: []contract.Annotation{nullable(contract.Default())}},
		contract.MethodDecl{Name: "Load", Params: []string{"key", "dst"}, Outputs: []int{1}},
		contract.MethodDecl{Name: "Note", Annotations: []contract.Annotation{nullable(contract.Result(0))}},
	))
	require.NoError(t, err)
	a.Equal("github.com/cockroachdb/nullguard/pkg/schema_test.Store", c.Name)
	a.Len(c.Members, storeType.NumMethod())
	a.Empty(c.Properties)

	get := c.Member("Get")
	if a.NotNil(get) {
		a.True(get.ErrorResult)
		if a.Len(get.Inputs, 1) {
			a.True(get.Inputs[0].Checked())
			a.Equal("key", get.Inputs[0].Name)
		}
		if a.Len(get.Results, 1) {
			a.False(get.Results[0].Checked())
			a.True(get.Results[0].AllowsNil)
		}
	}

	load := c.Member("Load")
	if a.NotNil(load) {
		a.Len(load.Inputs, 1)
		a.False(load.Inputs[0].Checked(), "strings are never checked")
		if a.Len(load.Outputs, 1) {
			out := load.Outputs[0]
			a.Equal(contract.KindOutput, out.Kind)
			a.Equal(1, out.Index)
			a.Equal(reflect.TypeOf((*string)(nil)), out.Type)
			a.True(out.Checked())
		}
	}

	each := c.Member("Each")
	if a.NotNil(each) {
		a.True(each.Variadic)
		if a.Len(each.Inputs, 2) {
			a.True(each.Inputs[0].Checked())
			a.False(each.Inputs[1].Checked())
			a.Equal("#1", each.Inputs[1].Name)
		}
	}

	note := c.Member("Note")
	if a.NotNil(note) && a.Len(note.Results, 1) {
		a.Equal(schema.Optional, note.Results[0].Nullness)
		a.False(note.Results[0].Checked())
	}

	if size := c.Member("Size"); a.NotNil(size) {
		a.Equal(schema.NotNullable, size.Results[0].Nullness)
	}
	if closer := c.Member("Close"); a.NotNil(closer) {
		a.True(closer.ErrorResult)
		a.Empty(closer.Results)
	}
	a.Nil(c.Member("Nope"))
}

func TestValidateProperties(t *testing.T) {
	a := assert.New(t)
	c, err := schema.Validate(propsType, &contract.Declaration{
		Contract: true,
		Methods: []contract.MethodDecl{
			{Name: "Item", Params: []string{"idx"}},
			{Name: "SetName", Annotations: []contract.Annotation{nullable(contract.Param(0))}},
		},
		Properties: []contract.PropertyDecl{
			{Name: "Item", Getter: "Item", Setter: "SetItem", Annotations: []contract.Annotation{nullable(contract.Param(0))}},
			{Name: "Name", Getter: "Name", Setter: "SetName"},
		},
	})
	require.NoError(t, err)

	item := c.Property("Item")
	if a.NotNil(item) {
		a.True(item.CanRead())
		a.True(item.CanWrite())
		if a.Len(item.Index, 1) {
			a.Equal(contract.KindIndex, item.Index[0].Kind)
			a.Equal("idx", item.Index[0].Name)
			a.True(item.Index[0].AllowsNil)
		}
		a.Equal("Item", item.Getter.Property)
		if a.Len(item.Setter.Inputs, 2) {
			a.Equal(contract.KindIndex, item.Setter.Inputs[0].Kind)
			a.Equal(contract.KindSetter, item.Setter.Inputs[1].Kind)
			a.Equal(1, item.Setter.Inputs[1].Index)
			a.True(item.Setter.Inputs[1].Checked())
		}
		a.Same(item.Getter, c.Member("Item"))
	}

	// Getter and setter default independently.
	name := c.Property("Name")
	if a.NotNil(name) {
		a.True(name.Getter.Results[0].Checked())
		a.False(name.Setter.Inputs[0].Checked())
	}
	a.Nil(c.Property("Nope"))
}

func TestReadOnlyProperty(t *testing.T) {
	a := assert.New(t)
	c, err := schema.Validate(propsType, props(
		contract.PropertyDecl{Name: "Name", Getter: "Name", Annotations: []contract.Annotation{nullable(contract.Default())}},
	))
	require.NoError(t, err)

	name := c.Property("Name")
	if a.NotNil(name) {
		a.True(name.CanRead())
		a.False(name.CanWrite())
		a.True(name.Getter.Results[0].AllowsNil)
	}
	// SetName is validated as a plain method.
	if m := c.Member("SetName"); a.NotNil(m) {
		a.Equal("", m.Property)
		a.Equal(contract.KindArgument, m.Inputs[0].Kind)
	}
}

func TestNullnessOf(t *testing.T) {
	type notOptional struct{ valid bool }
	type badValid struct{ Valid int }

	tcs := map[string]struct {
		value    interface{}
		expected schema.Nullness
	}{
		"pointer":      {(*int)(nil), schema.Nilable},
		"slice":        {[]int(nil), schema.Nilable},
		"map":          {map[int]int(nil), schema.Nilable},
		"func":         {(func())(nil), schema.Nilable},
		"chan":         {(chan int)(nil), schema.Nilable},
		"int":          {0, schema.NotNullable},
		"string":       {"", schema.NotNullable},
		"array":        {[2]*int{}, schema.NotNullable},
		"null string":  {sql.NullString{}, schema.Optional},
		"null generic": {sql.Null[int]{}, schema.Optional},
		"unexported":   {notOptional{}, schema.NotNullable},
		"wrong type":   {badValid{}, schema.NotNullable},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			n, _ := schema.NullnessOf(reflect.TypeOf(tc.value))
			assert.Equal(t, tc.expected, n)
		})
	}

	n, idx := schema.NullnessOf(reflect.TypeOf((*error)(nil)).Elem())
	assert.Equal(t, schema.Nilable, n)
	assert.Nil(t, idx)
}
