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

// Heap is the object allocator shared by every Thread of one Instance
// (spec §3.2, §5 "Shared resources"). All heap objects are created through
// Heap methods, which record them on an intrusive linked list (object.next)
// so the collector can sweep without a separate side table, and charge the
// allocation against the GC's byte-debt counter (spec §4.5).
type Heap struct {
	pool    *strpool.Pool
	strings map[*strpool.Entry]*String // one *String wrapper per interned entry
	objects object                     // head of the allocation list
	count   int64

	gc Collector

	globals  *Table
	registry *Table

	stringMeta *Table // shared metatable for every *String (spec §8.1 "String metatable")
}

// NewHeap creates an empty heap with fresh global and registry tables
// (spec §4.5 roots).
func NewHeap() *Heap {
	h := &Heap{pool: strpool.New(), strings: make(map[*strpool.Entry]*String)}
	h.globals = h.allocTable(0, 0)
	h.registry = h.allocTable(0, 0)
	h.gc.threshold = gcInitialThreshold
	return h
}

// Globals returns the global table (spec §4.5 roots; spec §6.1 GetGlobal).
func (h *Heap) Globals() *Table { return h.globals }

// Registry returns the registry table (spec §4.5 roots; analogous to the
// reference C API's registry, used by the host interface to stash values
// that must outlive any individual call).
func (h *Heap) Registry() *Table { return h.registry }

// StringMetatable returns the metatable shared by every string value, or
// nil if none has been installed. Lua 5.1 gives every string an implicit
// common metatable (normally { __index = <the string library table> }) so
// that `s:upper()` dispatches the same as `string.upper(s)`; set by the
// stdlib package at startup, not by the core VM itself (spec §8.1 "String
// metatable").
func (h *Heap) StringMetatable() *Table { return h.stringMeta }

// SetStringMetatable installs the shared string metatable (spec §8.1).
func (h *Heap) SetStringMetatable(mt *Table) { h.stringMeta = mt }

// track links obj into the allocation list and charges its estimated size
// against the GC debt counter (spec §4.5 "Triggering").
// track never triggers a collection itself: at the moment an object is
// created it is not yet reachable from any root (not stored in a register,
// a table slot, or an upvalue), so sweeping here would collect the very
// object just allocated. Collection is instead triggered from safe points
// in the dispatch loop (vm/run.go), which can pass the running Thread's
// live stack as an extra root (spec §4.5 "Triggering").
func (h *Heap) track(obj object, size int64) {
	h.count++
	h.gc.debt += size
	setNext(obj, h.objects)
	h.objects = obj
}

// NewString interns and heap-allocates a String (spec §3.2; at most one
// *String per distinct content — required for content equality to coincide
// with pointer identity, since Table's hash part is a plain Go map keyed on
// the Value interface).
func (h *Heap) NewString(data []byte) *String {
	e := h.pool.Intern(data)
	if s, ok := h.strings[e]; ok {
		return s
	}
	s := &String{entry: e}
	h.strings[e] = s
	h.track(s, int64(len(data))+32)
	return s
}

func (h *Heap) allocTable(narray, nrec int) *Table {
	t := NewTable(narray, nrec)
	h.track(t, int64(narray+nrec)*16+48)
	return t
}

// NewTable allocates a table with array/hash size hints (spec's NewTable
// opcode).
func (h *Heap) NewTable(narray, nrec int) *Table {
	return h.allocTable(narray, nrec)
}

// NewLuaClosure allocates a closure over a compiled Proto with one empty
// upvalue slot per entry of p.Upvalues, to be filled in by the Closure
// opcode's pseudo-instructions.
func (h *Heap) NewLuaClosure(p *Proto) *Closure {
	c := &Closure{Proto: p, Upvalues: make([]*Upvalue, len(p.Upvalues))}
	h.track(c, 64)
	return c
}

// NewHostClosure allocates a host-function closure with the given captured
// upvalues (spec §3.2's "host closure").
func (h *Heap) NewHostClosure(fn HostFunction, name string, captured ...Value) *Closure {
	c := &Closure{Host: fn, HostName: name, Captured: captured}
	h.track(c, 48)
	return c
}

// NewUserdata allocates an opaque userdata object carrying a Go payload and
// an optional metatable.
func (h *Heap) NewUserdata(data any) *Userdata {
	u := &Userdata{Data: data}
	h.track(u, 32)
	return u
}

// NewThread allocates a new coroutine Thread (spec §3.2).
func (h *Heap) NewThread() *Thread {
	t := newThread(h)
	h.track(t, 256)
	return t
}

// setNext stores the allocation-list link for obj; it is a free function
// (not a method on gcHeader) because gcHeader.next must stay unexported
// while every concrete heap object type needs to participate.
func setNext(obj object, next object) {
	switch o := obj.(type) {
	case *String:
		o.next = next
	case *Table:
		o.next = next
	case *Closure:
		o.next = next
	case *Userdata:
		o.next = next
	case *Thread:
		o.next = next
	}
}
