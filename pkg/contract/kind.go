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

//go:generate stringer -type Kind -trimprefix Kind

// The Kind of a position determines where its check is placed relative
// to the delegated call.
//  | Kind         | Checked | Example                          |
//  ------------------------------------------------------------------
//  | Getter       | after   | the *Person in Owner() *Person     |
//  | Setter       | before  | the p in SetOwner(p *Person)       |
//  | Index        | before  | the label in Shelf(label *Label)   |
//  | Argument     | before  | the key in Get(key *Key)           |
//  | Output       | after   | the *dst in Load(dst **Entry)      |
//  | Return       | after   | the *Entry in Get() (*Entry, error)|
type Kind int

const (
	KindGetter Kind = iota + 1
	KindSetter
	KindIndex
	KindArgument
	KindOutput
	KindReturn
)

// Describe returns a human-readable label for the kind of position.
func (k Kind) Describe() string {
	switch k {
	case KindGetter:
		return "getter return value"
	case KindSetter:
		return "setter assigned value"
	case KindIndex:
		return "indexer argument"
	case KindArgument:
		return "argument"
	case KindOutput:
		return "output argument"
	case KindReturn:
		return "return value"
	default:
		return k.String()
	}
}

// PostCall reports whether positions of this kind are checked after the
// delegated call returns.
func (k Kind) PostCall() bool {
	return k == KindGetter || k == KindOutput || k == KindReturn
}
