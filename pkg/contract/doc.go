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

// Package contract defines the declarations that describe which
// positions of an interface may carry a nil value, along with the two
// kinds of errors produced when those declarations are checked.
//
// Declarations are usually written as magic comments and turned into
// Declaration values by the nullguard generator. An interface opts into
// enforcement with
//   //nullguard:contract
//   type Store interface { ... }
//
// Every nillable position of an opted-in interface rejects nil unless a
// marker says otherwise. Markers are placed on interface methods:
//   type Store interface {
//     // The first result may be nil.
//     //nullguard:nullable
//     Get(key string) (*Entry, error)
//
//     // An explicit marker, equivalent to the default.
//     //nullguard:nonnull param key
//     Delete(key *Key) error
//
//     // dst is written by the implementation and checked afterwards.
//     //nullguard:out dst
//     Load(key string, dst **Entry) error
//   }
//
// The optional target of nonnull and nullable is one of
//   result [name|index]
//   param <name|index>
//   property [param <name|index>]
// An empty target means the first result of a method, the value of a
// property getter, or the assigned value of a property setter.
//
// A method pair of the form
//   Owner() *Person
//   SetOwner(p *Person)
// is a property. A marker with the property target applies to both
// accessors and may not be combined with a marker placed on either
// accessor for the same position. Leading parameters shared by both
// accessors are indexer arguments; their markers are pooled across the
// property and both accessors, and at most one may be present.
//
// Positions whose type cannot be nil never carry a marker. Structs with an
// exported Valid bool field, such as sql.NullString, are treated as
// nillable, with Valid == false standing in for nil.
package contract
