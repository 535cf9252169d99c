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

package rt

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cockroachdb/nullguard/pkg/contract"
	"github.com/cockroachdb/nullguard/pkg/proxy"
	"github.com/cockroachdb/nullguard/pkg/schema"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// A binding is what generated code registers for one interface.
type binding struct {
	decl *contract.Declaration
	shim proxy.Shim
}

// bindings are process-wide, since they describe the program itself.
var bindings struct {
	sync.RWMutex
	m map[reflect.Type]*binding
}

// bind records the declaration and shim for an interface type. The first
// registration for a type wins.
func bind(t reflect.Type, decl *contract.Declaration, shim proxy.Shim) bool {
	if shim == nil {
		panic(errors.Errorf("nullguard: nil shim registered for %s", t))
	}
	bindings.Lock()
	defer bindings.Unlock()
	if bindings.m == nil {
		bindings.m = make(map[reflect.Type]*binding)
	}
	if _, dup := bindings.m[t]; dup {
		return false
	}
	bindings.m[t] = &binding{decl: decl, shim: shim}
	return true
}

func lookup(t reflect.Type) *binding {
	bindings.RLock()
	defer bindings.RUnlock()
	return bindings.m[t]
}

// A Registry caches one Factory per interface type. Factories are built
// at most once and kept for the life of the Registry; failed builds are
// not cached, so a later call will try again.
//
// The methods on Registry are safe to call from multiple goroutines.
type Registry struct {
	config Config
	group  singleflight.Group
	logger *zap.Logger
	opts   []proxy.Option

	mu struct {
		sync.RWMutex
		builds    int
		factories map[reflect.Type]*proxy.Factory
	}
}

// NewRegistry constructs a Registry with its own cache. A nil logger
// disables logging.
func NewRegistry(cfg Config, logger *zap.Logger) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{config: cfg, logger: logger}
	r.mu.factories = make(map[reflect.Type]*proxy.Factory)

	r.opts = append(r.opts, proxy.WithViolationHook(func(v *contract.ViolationError) {
		r.logger.Debug("contract violation",
			zap.String("interface", v.Interface),
			zap.String("member", v.Member),
			zap.Stringer("kind", v.Kind),
			zap.String("position", v.Position))
	}))
	if cfg.Violations == ViolationsError {
		r.opts = append(r.opts, proxy.WithErrorResults())
	}
	return r, nil
}

// Builds returns the number of factories built so far.
func (r *Registry) Builds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mu.builds
}

// Config returns the Registry's configuration.
func (r *Registry) Config() Config { return r.config }

// Prepare builds the factory for an interface type ahead of first use,
// surfacing any *contract.DefinitionError. It is idempotent.
func (r *Registry) Prepare(t reflect.Type) error {
	_, err := r.factory(t)
	return err
}

// factory returns the cached Factory for t, building it if necessary.
// Concurrent callers for the same type share a single build.
func (r *Registry) factory(t reflect.Type) (*proxy.Factory, error) {
	if t == nil {
		return nil, &contract.DefinitionError{Reason: "no type given"}
	}
	r.mu.RLock()
	f := r.mu.factories[t]
	r.mu.RUnlock()
	if f != nil {
		return f, nil
	}

	name := schema.QualifiedName(t)
	ret, err, shared := r.group.Do(groupKey(t), func() (interface{}, error) {
		// Another caller may have finished a build between our lookup
		// and entering the group.
		r.mu.RLock()
		f := r.mu.factories[t]
		r.mu.RUnlock()
		if f != nil {
			return f, nil
		}

		f, err := r.build(t)
		if err != nil {
			r.logger.Debug("contract rejected", zap.String("interface", name), zap.Error(err))
			return nil, err
		}

		r.mu.Lock()
		r.mu.factories[t] = f
		r.mu.builds++
		r.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("shared contract build", zap.String("interface", name))
	}
	return ret.(*proxy.Factory), nil
}

// groupKey identifies a build in flight. Names alone are not unique:
// function-local types share their package path and name.
func groupKey(t reflect.Type) string {
	return fmt.Sprintf("%s@%p", schema.QualifiedName(t), t)
}

// build validates the declaration for t and synthesizes its Factory.
func (r *Registry) build(t reflect.Type) (*proxy.Factory, error) {
	var decl *contract.Declaration
	var shim proxy.Shim
	if b := lookup(t); b != nil {
		decl, shim = b.decl, b.shim
	}

	c, err := schema.Validate(t, decl)
	if err != nil {
		return nil, err
	}
	f, err := proxy.Synthesize(c, shim, r.opts...)
	if err != nil {
		return nil, err
	}

	checked := 0
	for _, m := range c.Members {
		for _, group := range [][]schema.Position{m.Inputs, m.Outputs, m.Results} {
			for _, pos := range group {
				if pos.Checked() {
					checked++
				}
			}
		}
	}
	r.logger.Debug("built contract",
		zap.String("interface", c.Name),
		zap.Int("members", len(c.Members)),
		zap.Int("properties", len(c.Properties)),
		zap.Int("checked_positions", checked))
	return f, nil
}
