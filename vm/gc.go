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

// gcInitialThreshold is the byte-debt level that triggers the first
// collection cycle of a fresh Heap (spec §4.5 "Triggering"). Subsequent
// thresholds are set to live-set-size * Collector.pause / 100 plus
// gcInitialThreshold, mirroring
// the reference implementation's generational pacing.
const gcInitialThreshold = 64 * 1024

// Collector holds the incremental mark-sweep collector's tunables and
// running state (spec §4.5). A collection pass here runs to completion
// once triggered rather than interleaving with bytecode dispatch one step
// at a time; "incremental" describes the debt-triggered pacing (a full
// Lua program's memory never gets a stop-the-world pause until it actually
// allocates past the threshold), not a mid-collection yield to the mutator.
type Collector struct {
	debt      int64 // bytes allocated since the last collection
	threshold int64 // debt level that triggers the next collection
	pause     int64 // threshold = liveBytes * pause / 100 + gcInitialThreshold after a cycle
	stepmul   int64 // unused by this stop-the-world pass; kept for parity
	live      int64 // estimated bytes retained after the last sweep
	cycles    int64 // collections run so far (diagnostics)
}

const (
	gcDefaultPause   = 200 // grow the heap to 2x live size before the next GC
	gcDefaultStepMul = 200
)

// collectGarbage runs one full mark-sweep cycle from every GC root known to
// a Heap (spec §4.5 "Roots"): the global table, the registry, the shared
// string metatable, and the Threads passed in as extra roots. Threads are
// not tracked by the Heap directly (they're ordinary heap objects reachable
// from wherever the host holds them), so the Instance that owns the Heap is
// responsible for passing its live threads in; the mark phase walks from
// globals/registry/string metatable plus whatever additional roots the
// caller supplies.
func (h *Heap) collectGarbage(extraRoots ...Value) {
	h.gc.cycles++

	marked := make(map[object]bool)
	var stack []Value

	push := func(v Value) {
		if v == nil {
			return
		}
		if o, ok := v.(object); ok {
			if o == nil || marked[o] {
				return
			}
			marked[o] = true
			stack = append(stack, v)
		}
	}

	push(h.globals)
	push(h.registry)
	if h.stringMeta != nil {
		push(h.stringMeta)
	}
	for _, v := range extraRoots {
		push(v)
	}

	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if o, ok := v.(object); ok {
			o.gcChildren(push)
		}
	}

	liveEntries := make(map[*strpool.Entry]bool)
	var live int64
	var kept object
	for obj := h.objects; obj != nil; {
		next := objectNext(obj)
		if marked[obj] {
			setNext(obj, kept)
			kept = obj
			live += objectSize(obj)
			if s, ok := obj.(*String); ok {
				liveEntries[s.entry] = true
			}
		} else if s, ok := obj.(*String); ok {
			// h.strings is the Heap's strong index from interned entry to
			// *String wrapper (see NewString); an unmarked String must be
			// dropped from it too, or the index itself would keep every
			// string alive forever and defeat collection entirely.
			delete(h.strings, s.entry)
		}
		obj = next
	}
	h.objects = kept
	h.pool.Sweep(func(e *strpool.Entry) bool { return liveEntries[e] })

	h.gc.live = live
	pause := h.gc.pause
	if pause == 0 {
		pause = gcDefaultPause
	}
	h.gc.threshold = live*pause/100 + gcInitialThreshold
	h.gc.debt = 0
}

// maybeCollect runs a collection pass if accumulated debt has crossed the
// threshold. extraRoots lets the caller (Instance) pass in the Values that
// are reachable only via the currently-executing Thread's register stack,
// which the Heap itself does not track.
func (h *Heap) maybeCollect(extraRoots ...Value) {
	if h.gc.debt < h.gc.threshold {
		return
	}
	h.collectGarbage(extraRoots...)
}

// objectNext/objectSize are the read-side counterparts of setNext: every
// concrete heap type knows its own link pointer and a rough accounting
// size, but neither is exposed on the object interface itself to keep
// gcHeader's fields unexported.
func objectNext(obj object) object {
	switch o := obj.(type) {
	case *String:
		return o.next
	case *Table:
		return o.next
	case *Closure:
		return o.next
	case *Userdata:
		return o.next
	case *Thread:
		return o.next
	default:
		return nil
	}
}

func objectSize(obj object) int64 {
	switch o := obj.(type) {
	case *String:
		return int64(len(o.Bytes())) + 32
	case *Table:
		return int64(len(o.array)+len(o.hash))*16 + 48
	case *Closure:
		return 64
	case *Userdata:
		return 32
	case *Thread:
		return 256
	default:
		return 0
	}
}
