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

// Table is Lua's hybrid array+hash associative store (spec §3.2). Integer
// keys 1..len(array) that are densely packed live in the array part; every
// other key (including integers with holes, or integers that would make the
// array part sparse) lives in the hash part.
type Table struct {
	gcHeader
	array     []Value // array[i] holds key i+1
	hash      map[Value]Value
	metatable *Table
}

// NewTable allocates a table with the given array/hash size hints (spec's
// NewTable opcode), grounded on original_source's Table(narray, nrec)
// constructor.
func NewTable(narray, nrec int) *Table {
	t := &Table{}
	if narray > 0 {
		t.array = make([]Value, 0, narray)
	}
	if nrec > 0 {
		t.hash = make(map[Value]Value, nrec)
	}
	return t
}

func (t *Table) Type() Type        { return TypeTable }
func (t *Table) GoString() string  { return addressTag("table", t) }
func (t *Table) Metatable() *Table { return t.metatable }
func (t *Table) SetMetatable(mt *Table) { t.metatable = mt }

func (t *Table) gcChildren(fn func(Value)) {
	for _, v := range t.array {
		fn(v)
	}
	for k, v := range t.hash {
		fn(k)
		fn(v)
	}
	if t.metatable != nil {
		fn(t.metatable)
	}
}

// arrayIndex returns (i, true) if key is an integral Number usable as a
// 1-based array index (any positive integral float representable exactly).
func arrayIndex(key Value) (int, bool) {
	n, ok := key.(Number)
	if !ok {
		return 0, false
	}
	f := float64(n)
	i := int(f)
	if float64(i) != f || i < 1 {
		return 0, false
	}
	return i, true
}

// Get returns the raw value stored at key (no metamethods), or Nil.
func (t *Table) Get(key Value) Value {
	if i, ok := arrayIndex(key); ok && i <= len(t.array) {
		v := t.array[i-1]
		if v == nil {
			return Nil
		}
		return v
	}
	if t.hash == nil {
		return Nil
	}
	if v, ok := t.hash[normalizeKey(key)]; ok {
		return v
	}
	return Nil
}

// GetStr is a fast path for the extremely common case of a string-keyed
// lookup (method dispatch, field access), avoiding the interface boxing of
// a generic Get call in the hot path.
func (t *Table) GetStr(key *String) Value {
	if t.hash == nil {
		return Nil
	}
	if v, ok := t.hash[key]; ok {
		return v
	}
	return Nil
}

// GetInt is a fast path for integer-keyed lookup (for-loop bodies, sequence
// access).
func (t *Table) GetInt(i int) Value {
	if i >= 1 && i <= len(t.array) {
		v := t.array[i-1]
		if v == nil {
			return Nil
		}
		return v
	}
	if t.hash == nil {
		return Nil
	}
	if v, ok := t.hash[Number(i)]; ok {
		return v
	}
	return Nil
}

// normalizeKey canonicalizes Nil to the Go nil key is never allowed as a
// map key (Set rejects it); this helper exists only to document that every
// other Value variant is already map-key-safe (pointers, bool, float64).
func normalizeKey(key Value) Value {
	return key
}

// Set stores value at key (spec §3.2: writing Nil deletes the entry).
// Panics are not used here: callers (the VM's SetTable opcode and the
// table.* stdlib) are responsible for raising the Lua-level error when key
// is Nil or NaN, since that is a runtime error with source position info
// this package does not have.
func (t *Table) Set(key, value Value) {
	if i, ok := arrayIndex(key); ok {
		t.setArray(i, value)
		return
	}
	if value == Nil {
		if t.hash != nil {
			delete(t.hash, key)
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = value
}

// SetStr is the fast path counterpart to GetStr.
func (t *Table) SetStr(key *String, value Value) {
	if value == Nil {
		if t.hash != nil {
			delete(t.hash, key)
		}
		return
	}
	if t.hash == nil {
		t.hash = make(map[Value]Value)
	}
	t.hash[key] = value
}

func (t *Table) setArray(i int, value Value) {
	switch {
	case i <= len(t.array):
		t.array[i-1] = value
		if value == Nil && i == len(t.array) {
			// shrink off trailing nils so Len() stays O(1) in the common case
			n := len(t.array)
			for n > 0 && (t.array[n-1] == nil || t.array[n-1] == Nil) {
				n--
			}
			t.array = t.array[:n]
		}
	case i == len(t.array)+1 && value != Nil:
		t.array = append(t.array, value)
		// migrate any contiguous successors sitting in the hash part, the
		// way the reference implementation's rehash does when growth makes
		// the array part denser than the hash part for this key range.
		if t.hash != nil {
			for {
				next := Number(len(t.array) + 1)
				v, ok := t.hash[next]
				if !ok {
					break
				}
				delete(t.hash, next)
				t.array = append(t.array, v)
			}
		}
	case value != Nil:
		if t.hash == nil {
			t.hash = make(map[Value]Value)
		}
		t.hash[Number(i)] = value
	}
}

// Len implements the # operator on tables (spec §3.2, §8.1): returns any
// border n such that t[n] ~= nil and t[n+1] == nil, or 0 if t[1] == nil.
// When the array part has no trailing hole this is O(1); otherwise a binary
// search over the array part finds a border in O(log N), falling back to a
// linear hash-part probe only when the array part is entirely full and the
// hash part might continue the sequence (spec's "makes the common
// contiguous case O(log N) by binary search on the border").
func (t *Table) Len() int {
	n := len(t.array)
	if n > 0 && (t.array[n-1] == nil || t.array[n-1] == Nil) {
		// binary search for a border inside the array part
		lo, hi := 0, n
		for hi-lo > 1 {
			mid := (lo + hi) / 2
			if t.array[mid-1] == nil || t.array[mid-1] == Nil {
				hi = mid
			} else {
				lo = mid
			}
		}
		return lo
	}
	if t.hash == nil || len(t.hash) == 0 {
		return n
	}
	// array part is full (or empty); probe the hash part for a continuing
	// sequence using exponential then binary search, as the reference does.
	i, j := n, n+1
	for {
		if v, ok := t.hash[Number(j)]; !ok || v == Nil {
			break
		}
		i = j
		j *= 2
		if j < 0 { // overflow guard
			j = i + 1
			break
		}
	}
	for j-i > 1 {
		mid := (i + j) / 2
		v, ok := t.hash[Number(mid)]
		if !ok || v == Nil {
			j = mid
		} else {
			i = mid
		}
	}
	return i
}

// Next implements the stateless iteration protocol behind pairs()/next():
// given the previous key (Nil to start), returns the next key/value pair in
// an implementation-defined but stable-for-the-table's-lifetime order, or
// ok=false when iteration is complete. Array-part keys are visited in index
// order before hash-part keys, matching the reference implementation's
// traversal order closely enough that scripts relying only on "some order,
// consistently" (the only guarantee Lua 5.1 makes) behave identically.
func (t *Table) Next(key Value) (nk, nv Value, ok bool, err error) {
	if key == Nil || key == nil {
		if idx := t.nextArrayFrom(0); idx > 0 {
			return Number(idx), t.array[idx-1], true, nil
		}
		return t.firstHashEntry()
	}
	if i, isArr := arrayIndex(key); isArr && i <= len(t.array) {
		if idx := t.nextArrayFrom(i); idx > 0 {
			return Number(idx), t.array[idx-1], true, nil
		}
		return t.firstHashEntry()
	}
	return t.nextHashEntry(key)
}

func (t *Table) nextArrayFrom(i int) int {
	for idx := i + 1; idx <= len(t.array); idx++ {
		if t.array[idx-1] != nil && t.array[idx-1] != Nil {
			return idx
		}
	}
	return 0
}

// hashOrder returns a stable snapshot of hash-part keys. Go map iteration
// order is randomized per run but stable within one; callers that need a
// fixed order across the whole traversal build this slice once per Next
// call, which is O(1) amortized thanks to Go's map implementation (no
// rehash happens mid-iteration since Set would have invalidated the
// traversal anyway per spec's "next" contract).
func (t *Table) hashOrder() []Value {
	keys := make([]Value, 0, len(t.hash))
	for k := range t.hash {
		keys = append(keys, k)
	}
	return keys
}

func (t *Table) firstHashEntry() (Value, Value, bool, error) {
	for _, k := range t.hashOrder() {
		return k, t.hash[k], true, nil
	}
	return Nil, Nil, false, nil
}

func (t *Table) nextHashEntry(key Value) (Value, Value, bool, error) {
	keys := t.hashOrder()
	for i, k := range keys {
		if k == key {
			if i+1 < len(keys) {
				nk := keys[i+1]
				return nk, t.hash[nk], true, nil
			}
			return Nil, Nil, false, nil
		}
	}
	return Nil, Nil, false, errInvalidKey
}
