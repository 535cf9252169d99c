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
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseComment(t *testing.T) {
	tcs := []struct {
		text string
		ok   bool
		name string
		args []string
	}{
		{text: "//nullguard:contract", ok: true, name: "contract"},
		{text: "// nullguard:nullable", ok: true, name: "nullable"},
		{text: "//nullguard:nullable param key", ok: true, name: "nullable", args: []string{"param", "key"}},
		{text: "/* nullguard:out dst */", ok: true, name: "out", args: []string{"dst"}},
		{text: "/*nullguard:nonnull\nresult 1*/", ok: true, name: "nonnull", args: []string{"result", "1"}},
		{text: "// A regular comment about nullguard:contract"},
		{text: "//go:generate nullguard ."},
		{text: "//nullguard:"},
	}

	for _, tc := range tcs {
		t.Run(tc.text, func(t *testing.T) {
			a := assert.New(t)
			d, ok := parseComment(tc.text)
			a.Equal(tc.ok, ok)
			if ok {
				a.Equal(tc.name, d.name)
				a.Equal(tc.args, d.args)
			}
		})
	}
}

func TestParseLine(t *testing.T) {
	a := assert.New(t)

	d, err := parseLine("  nullable param p ")
	a.NoError(err)
	a.Equal("nullable", d.name)
	a.Equal([]string{"param", "p"}, d.args)
	a.Equal("nullguard:nullable param p", d.String())

	d, err = parseLine("nullguard:contract")
	a.NoError(err)
	a.Equal("contract", d.name)
	a.Empty(d.args)

	_, err = parseLine("   ")
	a.EqualError(err, "empty directive")
}

// signature builds func(key, dst, opts *int) (value, ok *int).
func signature() *types.Signature {
	tuple := func(names ...string) *types.Tuple {
		vars := make([]*types.Var, len(names))
		for i, name := range names {
			vars[i] = types.NewVar(token.NoPos, nil, name, types.NewPointer(types.Typ[types.Int]))
		}
		return types.NewTuple(vars...)
	}
	return types.NewSignatureType(nil, nil, nil,
		tuple("key", "dst", "opts"), tuple("value", "ok"), false)
}

func TestApply(t *testing.T) {
	tcs := []struct {
		line            string
		annotations     []annotation
		propAnnotations []annotation
		outputs         []int
		property        bool
		err             string
	}{
		{line: "nullable", annotations: []annotation{{"CanBeNull", "Default()"}}},
		{line: "nonnull", annotations: []annotation{{"NeverNull", "Default()"}}},
		{line: "nonnull result", annotations: []annotation{{"NeverNull", "Result(0)"}}},
		{line: "nullable result ok", annotations: []annotation{{"CanBeNull", "Result(1)"}}},
		{line: "nullable result 1", annotations: []annotation{{"CanBeNull", "Result(1)"}}},
		{line: "nullable param opts", annotations: []annotation{{"CanBeNull", "Param(2)"}}},
		{line: "nonnull param 0", annotations: []annotation{{"NeverNull", "Param(0)"}}},
		{
			line:            "nullable property",
			propAnnotations: []annotation{{"CanBeNull", "Default()"}},
			property:        true,
		},
		{
			line:            "nonnull property param key",
			propAnnotations: []annotation{{"NeverNull", "Param(0)"}},
			property:        true,
		},
		{line: "out dst", outputs: []int{1}},
		{line: "out 2", outputs: []int{2}},
		{line: "property", property: true},

		{line: "nullable param", err: `cannot parse target "param"`},
		{line: "nullable param nope", err: `no parameter named "nope"`},
		{line: "nullable result 5", err: "result 5 is out of range"},
		{line: "nullable result -1", err: "result -1 is out of range"},
		{line: "nullable sideways", err: `cannot parse target "sideways"`},
		{line: "nullable property result", err: `cannot parse target "property result"`},
		{line: "out", err: "out requires exactly one parameter name or index"},
		{line: "out value", err: `no parameter named "value"`},
		{line: "property x", err: `property takes no arguments, found "x"`},
		{line: "contract", err: "contract belongs on the interface, not on a method"},
		{line: "bogus", err: `unknown directive "bogus"`},
	}

	sig := signature()
	for _, tc := range tcs {
		t.Run(tc.line, func(t *testing.T) {
			a := assert.New(t)
			d, err := parseLine(tc.line)
			if !a.NoError(err) {
				return
			}
			md := &methodDirectives{}
			err = md.apply(d, sig)
			if tc.err != "" {
				a.EqualError(err, tc.err)
				return
			}
			a.NoError(err)
			a.Equal(tc.annotations, md.annotations)
			a.Equal(tc.propAnnotations, md.propAnnotations)
			a.Equal(tc.outputs, md.outputs)
			a.Equal(tc.property, md.property)
		})
	}
}
