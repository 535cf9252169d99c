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

// Package fixture contains guarded interfaces shared by tests.
package fixture

//go:generate go run github.com/cockroachdb/nullguard/cmd/nullguard .

import (
	"context"
	"database/sql"
	"sync"
)

// Book is a catalog entry.
type Book struct {
	Title string
}

// Label names a shelf.
type Label struct {
	Name string
}

// Person owns a Library.
type Person struct {
	Name string
}

// Receipt is produced by Checkout.
type Receipt struct {
	Books []*Book
}

// Library exercises every kind of position.
//
//nullguard:contract
type Library interface {
	Owner() *Person
	SetOwner(owner *Person)

	//nullguard:nullable property
	Shelf(label *Label) []*Book
	SetShelf(label *Label, books []*Book)

	//nullguard:nullable
	Lookup(title *string) *Book

	//nullguard:out dst
	Borrow(title string, dst **Book) error

	//nullguard:nullable
	Motto() sql.NullString

	Nickname() sql.NullString
	SetNickname(nickname sql.NullString)

	Rating(title string) sql.NullInt64

	Checkout(ctx context.Context, books ...*Book) (*Receipt, error)

	//nullguard:nullable param note
	Annotate(book *Book, note *string) (string, error)

	Close()
}

// Counter carries a marker on a position that can never be nil.
//
//nullguard:contract
type Counter interface {
	//nullguard:nullable
	Count() int
}

// Plain never opted in.
type Plain interface {
	Name() *string
}

// Stub is a Library which returns whatever it is told to.
type Stub struct {
	// Returned by Lookup and written by Borrow.
	Book *Book
	// Returned by Borrow, Checkout and Annotate.
	Err error
	// Returned by Motto.
	Note sql.NullString
	// Raised by Checkout, if set.
	Panic interface{}
	// Returned by Checkout.
	Receipt *Receipt
	// Returned by Rating.
	Score sql.NullInt64

	mu struct {
		sync.Mutex
		calls    []string
		nickname sql.NullString
		owner    *Person
		shelves  map[*Label][]*Book
	}
}

var _ Library = &Stub{}

// Calls returns the names of the methods called so far.
func (s *Stub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mu.calls...)
}

func (s *Stub) record(name string) {
	s.mu.Lock()
	s.mu.calls = append(s.mu.calls, name)
	s.mu.Unlock()
}

// Owner implements Library.
func (s *Stub) Owner() *Person {
	s.record("Owner")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.owner
}

// SetOwner implements Library.
func (s *Stub) SetOwner(owner *Person) {
	s.record("SetOwner")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.owner = owner
}

// Shelf implements Library.
func (s *Stub) Shelf(label *Label) []*Book {
	s.record("Shelf")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.shelves[label]
}

// SetShelf implements Library.
func (s *Stub) SetShelf(label *Label, books []*Book) {
	s.record("SetShelf")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.shelves == nil {
		s.mu.shelves = make(map[*Label][]*Book)
	}
	s.mu.shelves[label] = books
}

// Lookup implements Library.
func (s *Stub) Lookup(*string) *Book {
	s.record("Lookup")
	return s.Book
}

// Borrow implements Library. Nothing is written when Err is set.
func (s *Stub) Borrow(_ string, dst **Book) error {
	s.record("Borrow")
	if s.Err != nil {
		return s.Err
	}
	if dst != nil {
		*dst = s.Book
	}
	return nil
}

// Motto implements Library.
func (s *Stub) Motto() sql.NullString {
	s.record("Motto")
	return s.Note
}

// Nickname implements Library.
func (s *Stub) Nickname() sql.NullString {
	s.record("Nickname")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.nickname
}

// SetNickname implements Library.
func (s *Stub) SetNickname(nickname sql.NullString) {
	s.record("SetNickname")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.nickname = nickname
}

// Rating implements Library.
func (s *Stub) Rating(string) sql.NullInt64 {
	s.record("Rating")
	return s.Score
}

// Checkout implements Library.
func (s *Stub) Checkout(_ context.Context, books ...*Book) (*Receipt, error) {
	s.record("Checkout")
	if s.Panic != nil {
		panic(s.Panic)
	}
	if s.Receipt == nil {
		return nil, s.Err
	}
	return &Receipt{Books: books}, s.Err
}

// Annotate implements Library.
func (s *Stub) Annotate(book *Book, note *string) (string, error) {
	s.record("Annotate")
	if s.Err != nil {
		return "", s.Err
	}
	if note == nil {
		return book.Title, nil
	}
	return book.Title + ": " + *note, nil
}

// Close implements Library.
func (s *Stub) Close() {
	s.record("Close")
}

// Tally is a Counter.
type Tally int

var _ Counter = Tally(0)

// Count implements Counter.
func (t Tally) Count() int { return int(t) }

// Named is a Plain.
type Named string

var _ Plain = Named("")

// Name implements Plain.
func (n Named) Name() *string {
	s := string(n)
	return &s
}
