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

// Package util contains helpers shared by the generator and the CLI.
package util

import (
	"go/types"
	"strings"
)

// Base is the path of this module's packages. Generated code imports
// the runtime from here.
const Base = "github.com/cockroachdb/nullguard/pkg/"

// InPackage checks to see if the given object is declared in a package
// with the given path or is in a vendored version of the same.
func InPackage(obj types.Object, path string) bool {
	if obj.Pkg() == nil {
		return false
	}
	pkg := obj.Pkg().Path()
	if pkg == path {
		return true
	}
	if strings.HasSuffix(pkg, "/vendor/"+path) {
		return true
	}
	return false
}

// The packages of the nullguard runtime, relative to Base.
var runtime = []string{"contract", "gen", "proxy", "rt", "schema", "util"}

// IsRuntime reports whether a package path belongs to the nullguard
// runtime itself, whose packages never receive generated code.
func IsRuntime(path string) bool {
	if idx := strings.LastIndex(path, "/vendor/"); idx >= 0 {
		path = path[idx+len("/vendor/"):]
	}
	rest := strings.TrimPrefix(path, Base)
	if rest == path {
		return false
	}
	for _, pkg := range runtime {
		if rest == pkg {
			return true
		}
	}
	return false
}
