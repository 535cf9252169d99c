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
	"go/types"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Example:
//   //nullguard:contract
//   //nullguard:nullable param key
//   /* nullguard:out dst */
var commentSyntax = regexp.MustCompile(
	`^(?s)(?://|/\*)[[:space:]]*nullguard:([[:alpha:]]+)(.*?)(?:\*/)?$`)

//   ^ s-flag enables dot to match newline
//          ^ Non-capturing group to match leading comment marker
// Ignore leading WS   ^
// Look for the literal nullguard: ^
//               Directive names are lower-case words ^
//                            Arguments, non-greedy match ^
//                                  Ignore closing block comment ^

// The directive names.
const (
	dirContract = "contract"
	dirNonNull  = "nonnull"
	dirNullable = "nullable"
	dirOut      = "out"
	dirProperty = "property"
)

// A directive is one parsed magic comment, or one line of a
// declarations file.
type directive struct {
	name string
	args []string
}

// String is for debugging use only.
func (d directive) String() string {
	return strings.TrimSpace("nullguard:" + d.name + " " + strings.Join(d.args, " "))
}

// parseComment extracts a directive from a single comment. The boolean
// will be false if the comment is not a directive at all.
func parseComment(text string) (directive, bool) {
	match := commentSyntax.FindStringSubmatch(text)
	if match == nil {
		return directive{}, false
	}
	return directive{name: match[1], args: strings.Fields(match[2])}, true
}

// parseLine parses a directive written without the comment syntax, as
// found in declarations files.
func parseLine(line string) (directive, error) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "nullguard:"))
	if len(fields) == 0 {
		return directive{}, errors.New("empty directive")
	}
	return directive{name: fields[0], args: fields[1:]}, nil
}

// An annotation is the generator's view of a contract.Annotation, kept
// in source form.
type annotation struct {
	// Either "NeverNull" or "CanBeNull".
	Marker string
	// A contract.Target constructor call, such as "Param(1)".
	Target string
}

func markerFor(name string) string {
	if name == dirNullable {
		return "CanBeNull"
	}
	return "NeverNull"
}

// A methodDirectives accumulates the directives attached to one method.
type methodDirectives struct {
	annotations []annotation
	outputs     []int
	// Set by the property directive or by a marker with a property
	// target.
	property bool
	// Markers aimed at the property rather than at the method.
	propAnnotations []annotation
}

// apply folds a directive into the method state, resolving parameter
// and result names against the method's signature.
func (m *methodDirectives) apply(d directive, sig *types.Signature) error {
	switch d.name {
	case dirNonNull, dirNullable:
		return m.mark(markerFor(d.name), d.args, sig)

	case dirOut:
		if len(d.args) != 1 {
			return errors.New("out requires exactly one parameter name or index")
		}
		idx, err := lookup(d.args[0], sig.Params(), "parameter")
		if err != nil {
			return err
		}
		m.outputs = append(m.outputs, idx)
		return nil

	case dirProperty:
		if len(d.args) != 0 {
			return errors.Errorf("property takes no arguments, found %q", strings.Join(d.args, " "))
		}
		m.property = true
		return nil

	case dirContract:
		return errors.New("contract belongs on the interface, not on a method")

	default:
		return errors.Errorf("unknown directive %q", d.name)
	}
}

// mark parses the target grammar
//   "" | result [name|index] | param <name|index> | property [param <name|index>]
func (m *methodDirectives) mark(marker string, args []string, sig *types.Signature) error {
	if len(args) == 0 {
		m.annotations = append(m.annotations, annotation{Marker: marker, Target: "Default()"})
		return nil
	}

	switch args[0] {
	case "result":
		switch len(args) {
		case 1:
			m.annotations = append(m.annotations, annotation{Marker: marker, Target: "Result(0)"})
			return nil
		case 2:
			idx, err := lookup(args[1], sig.Results(), "result")
			if err != nil {
				return err
			}
			m.annotations = append(m.annotations, annotation{Marker: marker, Target: "Result(" + strconv.Itoa(idx) + ")"})
			return nil
		}

	case "param":
		if len(args) == 2 {
			idx, err := lookup(args[1], sig.Params(), "parameter")
			if err != nil {
				return err
			}
			m.annotations = append(m.annotations, annotation{Marker: marker, Target: "Param(" + strconv.Itoa(idx) + ")"})
			return nil
		}

	case "property":
		m.property = true
		switch {
		case len(args) == 1:
			m.propAnnotations = append(m.propAnnotations, annotation{Marker: marker, Target: "Default()"})
			return nil
		case len(args) == 3 && args[1] == "param":
			// Indexer arguments lead both accessors, so the method's own
			// parameter list resolves their names.
			idx, err := lookup(args[2], sig.Params(), "parameter")
			if err != nil {
				return err
			}
			m.propAnnotations = append(m.propAnnotations, annotation{Marker: marker, Target: "Param(" + strconv.Itoa(idx) + ")"})
			return nil
		}
	}
	return errors.Errorf("cannot parse target %q", strings.Join(args, " "))
}

// lookup resolves a name or an index within a tuple.
func lookup(ref string, tuple *types.Tuple, what string) (int, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 0 || idx >= tuple.Len() {
			return 0, errors.Errorf("%s %d is out of range", what, idx)
		}
		return idx, nil
	}
	for i := 0; i < tuple.Len(); i++ {
		if tuple.At(i).Name() == ref {
			return i, nil
		}
	}
	return 0, errors.Errorf("no %s named %q", what, ref)
}
