// This file is part of glua.
//
// Copyright 2024 The glua Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vm

import "github.com/dbrn/glua/internal/strpool"

// gcHeader is embedded in every heap object. It carries the mark bit the GC
// needs (spec §3.2, §4.5) and links the object into the heap's allocation
// list so sweep can walk every live-or-dead object without a separate
// registry.
type gcHeader struct {
	mark bool
	next object
}

// object is implemented by every heap-allocated value kind (String, Table,
// Closure, Userdata, Thread). gcChildren invokes fn once per Value this
// object directly references, so the collector's mark phase can traverse
// the reachability graph without type-switching on every kind by hand.
type object interface {
	Value
	gcChildren(fn func(Value))
	marked() bool
	setMarked(bool)
}

func (h *gcHeader) marked() bool     { return h.mark }
func (h *gcHeader) setMarked(b bool) { h.mark = b }

// String is an immutable, interned byte sequence (spec §3.2). Two Strings
// with equal contents are always the same *String (internal/strpool
// guarantees this), so identity comparison implements content comparison.
type String struct {
	gcHeader
	entry *strpool.Entry
}

func (s *String) Type() Type       { return TypeString }
func (s *String) GoString() string { return string(s.entry.Data()) }
func (s *String) Bytes() []byte    { return s.entry.Data() }
func (s *String) Hash() uint64     { return s.entry.Hash() }
func (s *String) Len() int         { return len(s.entry.Data()) }

func (s *String) gcChildren(func(Value)) {}
