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

	"github.com/pkg/errors"
)

// invoker is the Invoker handed to each shim. It holds the inner
// instance as a value of the interface type so that methods can be
// called by their interface index.
type invoker struct {
	factory *Factory
	inner   reflect.Value
}

var _ Invoker = &invoker{}

// Invoke implements Invoker. Violations panic with a
// *contract.ViolationError, or are returned through the error result when
// the Factory was built WithErrorResults. Panics and errors from the inner
// instance pass through untouched.
func (w *invoker) Invoke(method string, args ...interface{}) []interface{} {
	p := w.factory.plans[method]
	if p == nil {
		panic(errors.Errorf("nullguard: %s has no method %s; regenerate the shim",
			w.factory.contract.Name, method))
	}
	if len(args) != len(p.in) {
		panic(errors.Errorf("nullguard: %s.%s called with %d arguments, want %d; regenerate the shim",
			w.factory.contract.Name, method, len(args), len(p.in)))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		// Build values of the exact parameter type so that a nil
		// interface argument stays distinguishable from an interface
		// holding a nil pointer.
		v := reflect.New(p.in[i]).Elem()
		if arg != nil {
			v.Set(reflect.ValueOf(arg))
		}
		in[i] = v
	}

	if pos := p.checkBefore(in); pos != nil {
		return w.factory.violate(p, pos)
	}

	fn := w.inner.Method(p.method)
	var out []reflect.Value
	if p.variadic {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	if pos := p.checkAfter(in, out); pos != nil {
		return w.factory.violate(p, pos)
	}

	ret := make([]interface{}, len(out))
	for i, v := range out {
		ret[i] = v.Interface()
	}
	return ret
}
