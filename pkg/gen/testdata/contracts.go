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

package testdata

import (
	"context"
	"io"
	"time"
)

// Entry is stored in a Cache.
type Entry struct {
	Value string
}

// Options tune a Load.
type Options struct {
	Fresh bool
}

// Closer is embedded below; its directives travel with it.
type Closer interface {
	//nullguard:nullable
	Done() <-chan struct{}
}

// Cache is an example contract.
//
//nullguard:contract
type Cache interface {
	Closer

	//nullguard:nullable result value
	Get(ctx context.Context, key string) (value *Entry, ok bool)

	//nullguard:out dst
	//nullguard:nullable param opts
	Load(key string, dst **Entry, opts *Options) error

	//nullguard:nullable property param key
	Item(key *string) *Entry
	SetItem(key *string, e *Entry)

	//nullguard:property
	TTL() *time.Duration

	Each(fn func(*Entry) bool, keys ...string)
}

// Unguarded carries no contract, so nothing is generated for it.
type Unguarded interface {
	Get() *Entry
}

// Source hands out readers, which are guarded through nullguard.yaml.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}
