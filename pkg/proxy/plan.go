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

package proxy

import (
	"reflect"

	"github.com/cockroachdb/nullguard/pkg/schema"
)

// A plan is the compiled form of a MemberContract. Only positions which
// reject nil survive compilation.
type plan struct {
	// Run before the call, in declaration order.
	before []check
	// Whether the last result is an error.
	errResult bool
	in        []reflect.Type
	// The interface method index.
	method int
	name   string
	out    []reflect.Type
	// Run after the call: outputs in parameter order, then results.
	outputs  []check
	results  []check
	variadic bool
}

// A check tests one position.
type check struct {
	isNil func(reflect.Value) bool
	pos   schema.Position
}

func compile(m *schema.MemberContract) *plan {
	ret := &plan{
		errResult: m.ErrorResult,
		method:    m.Index,
		name:      m.Name,
		variadic:  m.Variadic,
	}
	for i := 0; i < m.Type.NumIn(); i++ {
		ret.in = append(ret.in, m.Type.In(i))
	}
	for i := 0; i < m.Type.NumOut(); i++ {
		ret.out = append(ret.out, m.Type.Out(i))
	}

	for _, pos := range m.Inputs {
		if pos.Checked() {
			ret.before = append(ret.before, check{isNil: tester(pos), pos: pos})
		}
	}
	for _, pos := range m.Outputs {
		if pos.Checked() {
			test := tester(pos)
			ret.outputs = append(ret.outputs, check{
				// A nil destination can never have been written to.
				isNil: func(ptr reflect.Value) bool { return ptr.IsNil() || test(ptr.Elem()) },
				pos:   pos,
			})
		}
	}
	for _, pos := range m.Results {
		if pos.Checked() {
			ret.results = append(ret.results, check{isNil: tester(pos), pos: pos})
		}
	}
	return ret
}

// tester returns the nil test for a position's type.
func tester(pos schema.Position) func(reflect.Value) bool {
	if pos.Nullness == schema.Optional {
		field := pos.ValidField
		return func(v reflect.Value) bool { return !v.FieldByIndex(field).Bool() }
	}
	return func(v reflect.Value) bool { return v.IsNil() }
}

// checkBefore returns the first input position holding a forbidden nil.
func (p *plan) checkBefore(in []reflect.Value) *schema.Position {
	for i := range p.before {
		c := &p.before[i]
		if c.isNil(in[c.pos.Index]) {
			return &c.pos
		}
	}
	return nil
}

// checkAfter returns the first output or result position holding a
// forbidden nil. Nothing is checked if the call returned an error.
func (p *plan) checkAfter(in, out []reflect.Value) *schema.Position {
	if p.errResult && !out[len(out)-1].IsNil() {
		return nil
	}
	for i := range p.outputs {
		c := &p.outputs[i]
		if c.isNil(in[c.pos.Index]) {
			return &c.pos
		}
	}
	for i := range p.results {
		c := &p.results[i]
		if c.isNil(out[c.pos.Index]) {
			return &c.pos
		}
	}
	return nil
}
