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

import "fmt"

// Resolve decides whether nil is allowed at one position, given every
// marker that was attached to it. The label describes the position in
// error messages.
//
// If no marker is present, present will be false and the caller chooses
// the default. Attaching more than one marker to a position is always a
// DefinitionError, even if the markers agree.
func Resolve(markers []Marker, label string) (allowed, present bool, err error) {
	switch len(markers) {
	case 0:
		return false, false, nil
	case 1:
	default:
		return false, false, &DefinitionError{Reason: fmt.Sprintf(
			"%s: only one nullability marker is allowed per position, found %d", label, len(markers))}
	}

	switch m := markers[0]; m {
	case NeverNull:
		return false, true, nil
	case CanBeNull:
		return true, true, nil
	default:
		return false, false, &DefinitionError{Reason: fmt.Sprintf(
			"%s: invalid nullability marker %s", label, m)}
	}
}
