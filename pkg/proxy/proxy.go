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

// Package proxy synthesizes contract-enforcing wrappers.
//
// Go cannot add methods to a type at run time, so the method set of a
// wrapper comes from a shim: a small generated type which implements the
// interface by handing every call, by name, to an Invoker.
//   type storeGuard struct{ inv rt.Invoker }
//
//   func (g storeGuard) Get(p0 string) (*Entry, error) {
//     out := g.inv.Invoke("Get", p0)
//     r0, _ := out[0].(*Entry)
//     r1, _ := out[1].(error)
//     return r0, r1
//   }
// The shim contains no checks. Synthesize compiles an
// InterfaceContract into per-method plans, and the Invoker handed to each
// shim runs those plans around a reflective call to the inner instance.
package proxy

import (
	"fmt"
	"reflect"

	"github.com/cockroachdb/nullguard/pkg/contract"
	"github.com/cockroachdb/nullguard/pkg/schema"
)

// An Invoker receives every call made on a shim. The returned slice
// holds one value per result of the method.
type Invoker interface {
	Invoke(method string, args ...interface{}) []interface{}
}

// A Shim constructs a generated shim around an Invoker. The returned
// value must implement the interface the shim was generated for.
type Shim func(Invoker) interface{}

// An Option customizes a Factory.
type Option func(f *Factory)

// WithViolationHook registers a function to observe every violation
// before it is raised.
func WithViolationHook(fn func(*contract.ViolationError)) Option {
	return func(f *Factory) { f.onViolation = fn }
}

// WithErrorResults reports violations of methods whose last result is an
// error through that result, with every other result zeroed, instead of
// panicking. Methods without an error result still panic.
func WithErrorResults() Option {
	return func(f *Factory) { f.errorResults = true }
}

// A Factory wraps instances of one interface. It is immutable once
// built and may be shared freely.
type Factory struct {
	contract     *schema.InterfaceContract
	errorResults bool
	onViolation  func(*contract.ViolationError)
	plans        map[string]*plan
	shim         Shim
}

// Synthesize builds a Factory which wraps instances with the given shim
// and enforces the contract on every call.
func Synthesize(c *schema.InterfaceContract, shim Shim, opts ...Option) (*Factory, error) {
	if shim == nil {
		return nil, &contract.DefinitionError{Interface: c.Name, Reason: "no shim was generated for the interface"}
	}
	// Shims only store the Invoker, so a throwaway instance is enough to
	// confirm that the generated code still matches the interface.
	probe := shim(nil)
	if probe == nil || !reflect.TypeOf(probe).Implements(c.Type) {
		return nil, &contract.DefinitionError{
			Interface: c.Name,
			Reason:    fmt.Sprintf("shim %T does not implement the interface; regenerate it", probe),
		}
	}

	f := &Factory{
		contract: c,
		plans:    make(map[string]*plan, len(c.Members)),
		shim:     shim,
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, m := range c.Members {
		f.plans[m.Name] = compile(m)
	}
	return f, nil
}

// Contract returns the contract the Factory enforces.
func (f *Factory) Contract() *schema.InterfaceContract { return f.contract }

// New returns a wrapper around inner. The wrapper implements the
// interface and owns nothing but its reference to inner.
//
// New panics if inner does not implement the interface.
func (f *Factory) New(inner interface{}) interface{} {
	iv := reflect.New(f.contract.Type).Elem()
	iv.Set(reflect.ValueOf(inner))
	return f.shim(&invoker{factory: f, inner: iv})
}

// violate raises a violation found while executing a plan.
func (f *Factory) violate(p *plan, pos *schema.Position) []interface{} {
	err := &contract.ViolationError{
		Interface: f.contract.Name,
		Kind:      pos.Kind,
		Member:    p.name,
		Position:  pos.Name,
	}
	if f.onViolation != nil {
		f.onViolation(err)
	}
	if !f.errorResults || !p.errResult {
		panic(err)
	}
	ret := make([]interface{}, len(p.out))
	for i, typ := range p.out[:len(p.out)-1] {
		ret[i] = reflect.Zero(typ).Interface()
	}
	ret[len(ret)-1] = error(err)
	return ret
}
