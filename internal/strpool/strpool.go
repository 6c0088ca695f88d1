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

// Package strpool interns byte-slice contents by hash and contents, so that
// the heap needs to keep at most one String object per distinct content
// (spec §3.2, §8.1 "String interning"). It is deliberately unaware of the vm
// package's heap object type: vm.String embeds an *Entry and adds the GC
// mark bit, keeping this package a plain, reusable content-addressed cache.
package strpool

// Entry is one interned byte-string. Entries are never mutated once created:
// the whole point of interning is that identical content maps to the same
// *Entry, so two interned strings are content-equal iff they are the same
// pointer.
type Entry struct {
	data []byte
	hash uint64
}

// Data returns the interned bytes. Callers must not modify the result.
func (e *Entry) Data() []byte { return e.data }

// Hash returns the precomputed FNV-1a hash of the content.
func (e *Entry) Hash() uint64 { return e.hash }

// Pool interns byte slices by content.
type Pool struct {
	entries map[string]*Entry
}

// New creates an empty interning pool.
func New() *Pool {
	return &Pool{entries: make(map[string]*Entry)}
}

// Intern returns the Entry for s, creating and registering a new one if this
// is the first time this content has been seen. The returned Entry's data is
// a private copy; the caller's slice is never aliased.
func (p *Pool) Intern(s []byte) *Entry {
	key := string(s) // one allocation; also serves as the map key
	if e, ok := p.entries[key]; ok {
		return e
	}
	e := &Entry{data: []byte(key), hash: fnv1a(s)}
	p.entries[key] = e
	return e
}

// Len reports the number of distinct interned strings.
func (p *Pool) Len() int { return len(p.entries) }

// Sweep removes every entry for which keep returns false. It is called by
// the GC sweep phase (spec §4.5 — the string pool is a weak root): a string
// with no other reachable reference is collectible.
func (p *Pool) Sweep(keep func(*Entry) bool) {
	for k, e := range p.entries {
		if !keep(e) {
			delete(p.entries, k)
		}
	}
}

func fnv1a(data []byte) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
