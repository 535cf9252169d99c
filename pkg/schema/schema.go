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

// Package schema turns an interface type and its contract.Declaration
// into a validated InterfaceContract. Once built, a contract is never
// re-derived: everything downstream trusts it completely.
package schema

import (
	"reflect"

	"github.com/cockroachdb/nullguard/pkg/contract"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Nullness describes how, if at all, a type represents nil.
type Nullness int

const (
	// NotNullable types can never be nil and are never checked.
	NotNullable Nullness = iota
	// Nilable types are pointers, interfaces, maps, slices, funcs,
	// channels and unsafe pointers.
	Nilable
	// Optional types are structs with an exported Valid bool field, as in
	// the database/sql Null types. They are nil when Valid is false.
	Optional
)

// NullnessOf classifies a type. For Optional types, the index of the
// Valid field is also returned.
func NullnessOf(t reflect.Type) (Nullness, []int) {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return Nilable, nil
	case reflect.Struct:
		if f, ok := t.FieldByName("Valid"); ok && f.IsExported() && f.Type.Kind() == reflect.Bool {
			return Optional, f.Index
		}
	}
	return NotNullable, nil
}

// A Position is a single checked location within a member: one
// parameter, one output, or one result.
type Position struct {
	Kind contract.Kind
	// The index of the parameter or result within the method signature.
	Index int
	// A name for messages; may be empty.
	Name string
	// The type of the value being checked. For outputs, this is the
	// pointee type.
	Type       reflect.Type
	Nullness   Nullness
	ValidField []int
	// The resolved marker: true if nil is permitted.
	AllowsNil bool
}

// Checked reports whether a nil value must be rejected at the position.
func (p Position) Checked() bool {
	return p.Nullness != NotNullable && !p.AllowsNil
}

// A MemberContract describes one interface method. Property accessors
// are methods too, with their positions labeled accordingly.
type MemberContract struct {
	Name string
	// The index of the method within the interface's method set.
	Index int
	// The method's func type, without a receiver.
	Type reflect.Type
	// The name of the property this method is an accessor of, if any.
	Property string
	// Positions checked before the call, in declaration order. For a
	// setter, the assigned value is last.
	Inputs []Position
	// Output parameters, checked after the call in declaration order.
	Outputs []Position
	// Results, excluding a trailing error, checked after the outputs.
	Results []Position
	// Variadic methods are invoked with their final argument as a slice.
	Variadic bool
	// ErrorResult is set when the last result is an error. If the
	// implementation returns a non-nil error, no post-call checks run.
	ErrorResult bool
}

// A PropertyContract groups the accessors of one property.
type PropertyContract struct {
	Name   string
	Getter *MemberContract
	Setter *MemberContract
	// The indexer arguments shared by both accessors.
	Index []Position
}

// CanRead reports whether the property has a getter.
func (p *PropertyContract) CanRead() bool { return p.Getter != nil }

// CanWrite reports whether the property has a setter.
func (p *PropertyContract) CanWrite() bool { return p.Setter != nil }

// An InterfaceContract is the complete, immutable description of one
// interface. It is safe to share between goroutines.
type InterfaceContract struct {
	Type reflect.Type
	// The qualified name of the interface, used in messages.
	Name string
	// One entry per method, indexed like Type.Method(i).
	Members    []*MemberContract
	Properties []*PropertyContract
}

// Member returns the contract for the named method, or nil.
func (c *InterfaceContract) Member(name string) *MemberContract {
	for _, m := range c.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Property returns the named property, or nil.
func (c *InterfaceContract) Property(name string) *PropertyContract {
	for _, p := range c.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// QualifiedName returns the import path and name of a named type, such
// as "database/sql.Result", or the type's literal otherwise.
func QualifiedName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
