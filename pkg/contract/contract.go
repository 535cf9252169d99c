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

package contract

import "strconv"

// A Marker states whether nil is permitted at a position.
type Marker int

const (
	// Unspecified is the zero value. It is never valid inside an
	// Annotation.
	Unspecified Marker = iota
	// NeverNull rejects nil. It is also the default for positions which
	// carry no marker at all.
	NeverNull
	// CanBeNull permits nil.
	CanBeNull
)

// String returns the directive spelling of the marker.
func (m Marker) String() string {
	switch m {
	case Unspecified:
		return "unspecified"
	case NeverNull:
		return "nonnull"
	case CanBeNull:
		return "nullable"
	default:
		return "Marker(" + strconv.Itoa(int(m)) + ")"
	}
}

// TargetKind selects which family of positions a Target refers to.
type TargetKind int

const (
	// TargetDefault is the first result of a method, the value of a
	// property getter, or the assigned value of a property setter.
	TargetDefault TargetKind = iota
	// TargetParam is a parameter, by index.
	TargetParam
	// TargetResult is a result, by index.
	TargetResult
)

// A Target identifies the position an Annotation is attached to.
type Target struct {
	Kind  TargetKind
	Index int
}

// Default returns the default Target.
func Default() Target { return Target{} }

// Param returns a Target for the i'th parameter.
func Param(i int) Target { return Target{Kind: TargetParam, Index: i} }

// Result returns a Target for the i'th result.
func Result(i int) Target { return Target{Kind: TargetResult, Index: i} }

// String is for debugging use only.
func (t Target) String() string {
	switch t.Kind {
	case TargetDefault:
		return "default"
	case TargetParam:
		return "param " + strconv.Itoa(t.Index)
	case TargetResult:
		return "result " + strconv.Itoa(t.Index)
	default:
		return "target(" + strconv.Itoa(int(t.Kind)) + ")"
	}
}

// An Annotation attaches a single Marker to a single position. Multiple
// annotations may name the same position; the validator rejects that.
type Annotation struct {
	Marker Marker
	Target Target
}

// MethodDecl describes the annotations placed on one interface method.
type MethodDecl struct {
	// The method name, which must exist on the interface.
	Name string
	// Parameter names, used only to produce readable messages. May be
	// shorter than the actual parameter list.
	Params []string
	// Result names, used only to produce readable messages.
	Results []string
	// Indexes of pointer parameters whose pointee is written by the
	// implementation. These are checked after the call returns.
	Outputs     []int
	Annotations []Annotation
}

// PropertyDecl groups a getter and a setter into a property. Either
// accessor may be absent, but not both.
type PropertyDecl struct {
	Name   string
	Getter string
	Setter string
	// Annotations with TargetDefault apply to the property value; those
	// with TargetParam apply to the indexer arguments of both accessors.
	Annotations []Annotation
}

// A Declaration holds everything that was written about one interface.
// It is inert data: nothing is checked until it is validated.
type Declaration struct {
	// The interface name, as written in source. Informational only.
	Interface string
	// Contract is the opt-in marker. A Declaration without it is rejected.
	Contract   bool
	Methods    []MethodDecl
	Properties []PropertyDecl
}

// Method returns the declaration for the named method, if one exists.
func (d *Declaration) Method(name string) *MethodDecl {
	if d == nil {
		return nil
	}
	for i := range d.Methods {
		if d.Methods[i].Name == name {
			return &d.Methods[i]
		}
	}
	return nil
}
