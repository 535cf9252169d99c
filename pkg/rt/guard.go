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

// Package rt contains the runtime which generated code registers with,
// along with the Guard entry points.
//
// A typical program guards an implementation once and passes the result
// around in its place:
//   store, err := rt.Guard[Store](newStore())
//
// Behavior can be tuned from the environment:
//   NULLGUARD_ENABLED=false     validate contracts but do not wrap
//   NULLGUARD_VIOLATIONS=error  return violations through an error result
package rt

import (
	"reflect"
	"sync"

	"github.com/cockroachdb/nullguard/pkg/contract"
	"github.com/cockroachdb/nullguard/pkg/proxy"
	"go.uber.org/zap"
)

// Invoker is implemented by the runtime and called by generated shims.
type Invoker = proxy.Invoker

// Register binds a declaration and a generated shim constructor to the
// interface type T. It is called from the init function of generated
// code. If T is registered more than once, the first registration is
// kept.
func Register[T any](decl *contract.Declaration, shim func(Invoker) T) {
	t := reflect.TypeFor[T]()
	var fn proxy.Shim
	if shim != nil {
		fn = func(inv proxy.Invoker) interface{} { return shim(inv) }
	}
	if !bind(t, decl, fn) {
		Default().logger.Warn("duplicate nullguard registration ignored",
			zap.Stringer("interface", t))
	}
}

var defaultRegistry struct {
	once sync.Once
	r    *Registry
}

// Default returns the process-wide Registry, configured from the
// environment on first use. An unusable environment is logged and the
// default configuration is used in its place.
func Default() *Registry {
	defaultRegistry.once.Do(func() {
		cfg, err := ConfigFromEnv()
		if err != nil {
			cfg = DefaultConfig()
		}
		r, _ := NewRegistry(cfg, zap.L().Named("nullguard"))
		if err != nil {
			r.logger.Warn("ignoring nullguard environment", zap.Error(err))
		}
		defaultRegistry.r = r
	})
	return defaultRegistry.r
}

// Guard returns a wrapper around inst which enforces the nullability
// contract of the interface T on every call. A nil inst is returned as
// is, without validating anything. The first Guard for a given T builds
// and caches its contract; any *contract.DefinitionError is returned then
// and on every later attempt.
func Guard[T any](inst T) (T, error) {
	return GuardIn(Default(), inst)
}

// MustGuard is like Guard, but panics on error. It suits package-level
// variable initializers.
func MustGuard[T any](inst T) T {
	ret, err := Guard(inst)
	if err != nil {
		panic(err)
	}
	return ret
}

// Prepare validates the contract of T and builds its factory without
// wrapping anything.
func Prepare[T any]() error {
	return PrepareIn[T](Default())
}

// GuardIn is like Guard, but uses the given Registry.
func GuardIn[T any](r *Registry, inst T) (T, error) {
	if any(inst) == nil {
		return inst, nil
	}
	f, err := r.factory(reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	if !r.config.Enabled {
		return inst, nil
	}
	return f.New(inst).(T), nil
}

// PrepareIn is like Prepare, but uses the given Registry.
func PrepareIn[T any](r *Registry) error {
	return r.Prepare(reflect.TypeFor[T]())
}
