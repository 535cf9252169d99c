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

import (
	"strconv"
	"strings"
)

// A DefinitionError reports an ill-formed Declaration. It is produced
// while a contract is being built and never by a guarded call.
type DefinitionError struct {
	// The qualified interface name, if known.
	Interface string
	// The member being validated, if any.
	Member string
	Reason string
}

var _ error = &DefinitionError{}

// Error implements error.
func (e *DefinitionError) Error() string {
	sb := &strings.Builder{}
	sb.WriteString("nullguard: invalid contract")
	if e.Interface != "" {
		sb.WriteString(" for ")
		sb.WriteString(e.Interface)
		if e.Member != "" {
			sb.WriteString(".")
			sb.WriteString(e.Member)
		}
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

// A ViolationError reports that a nil value was observed at a position
// which forbids it. Guarded calls panic with a *ViolationError unless the
// guard was configured to return it through an error result.
type ViolationError struct {
	// The qualified interface name, e.g. "github.com/x/store.Store".
	Interface string
	Member    string
	Kind      Kind
	// The parameter or result name, or "#n" when unnamed.
	Position string
}

var _ error = &ViolationError{}

// Error implements error.
//   nullguard: argument "key" of example.com/store.Store.Get is nil
func (e *ViolationError) Error() string {
	sb := &strings.Builder{}
	sb.WriteString("nullguard: ")
	sb.WriteString(e.Kind.Describe())
	if e.Position != "" {
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(e.Position))
	}
	sb.WriteString(" of ")
	sb.WriteString(e.Interface)
	sb.WriteString(".")
	sb.WriteString(e.Member)
	sb.WriteString(" is nil")
	return sb.String()
}
