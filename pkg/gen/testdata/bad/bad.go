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

package bad

// Broken has a problem on every method.
//
//nullguard:contract
type Broken interface {
	//nullguard:nullable param missing
	Get(key *string) *string

	//nullguard:out 7
	Load(dst **string) error

	//nullguard:frobnicate
	Put(v *string)

	//nullguard:property
	Close() error
}

// Misplaced puts a marker where a contract belongs.
//
//nullguard:nullable
type Misplaced interface {
	//nullguard:nonnull
	Get() *string
}

// Generic cannot be guarded without an instantiation.
//
//nullguard:contract
type Generic[T any] interface {
	Get() T
}
